// Package session owns the app's mutable state: navigation target, active
// profile, level progress, settings, the parent PIN gate and the daily
// screen-time counter. It mediates all writes to durable storage.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flashkids/internal/credentials"
	"flashkids/internal/models"
)

const (
	pinService = "flashkids.parentgate"
	pinAccount = "pin"

	// DefaultProfileName is used when the store is empty on first launch.
	DefaultProfileName = "Explorer"

	// usageFlushInterval is how many counted seconds pass between periodic
	// usage flushes to storage. A final flush happens on stop.
	usageFlushInterval = 15
)

var (
	// ErrLastProfile is returned when deleting the only remaining profile.
	ErrLastProfile = errors.New("cannot delete the last remaining profile")

	// ErrUnknownSubject is returned for a subject outside the curriculum.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrUnknownLevel is returned for a level outside the subject's range.
	ErrUnknownLevel = errors.New("unknown level")

	// ErrLevelLocked is returned when starting a lesson that is not unlocked yet.
	ErrLevelLocked = errors.New("level is locked")

	// ErrNoActiveProfile is returned when a profile-dependent operation runs
	// before LoadProfiles.
	ErrNoActiveProfile = errors.New("no active profile")

	// ErrPINNotSet is returned when settings try to require a PIN while no
	// PIN hash is stored.
	ErrPINNotSet = errors.New("no parent pin is set")
)

// Tracker is the single owner of session state. All mutations take its lock,
// so the periodic usage tick and HTTP handlers never race.
type Tracker struct {
	mu  sync.Mutex
	log *zap.Logger

	profileStore  ProfileStore
	progressStore ProgressStore
	settingsStore SettingsStore
	usageStore    UsageStore
	creds         credentials.Store

	now       func() time.Time
	newTicker TickerFactory

	screen   models.Screen
	list     []models.Profile
	activeID string
	levels   map[models.Subject][]models.LevelProgress
	cfg      models.Settings

	pinVerified bool

	usageDate    string
	usageSeconds int
	breakLatched bool
	tickCancel   chan struct{}

	syncFailures int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock injects the time source. Tests use it to pin the current day.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithTickerFactory injects the tick source used by StartTimeTracking.
func WithTickerFactory(f TickerFactory) Option {
	return func(t *Tracker) { t.newTicker = f }
}

// New creates a tracker over the given stores. Call LoadProfiles before any
// profile-dependent operation.
func New(profiles ProfileStore, progress ProgressStore, settings SettingsStore, usage UsageStore, creds credentials.Store, log *zap.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}

	t := &Tracker{
		log:           log,
		profileStore:  profiles,
		progressStore: progress,
		settingsStore: settings,
		usageStore:    usage,
		creds:         creds,
		now:           time.Now,
		newTicker:     NewTicker,
		screen:        models.Home(),
		cfg:           models.DefaultSettings(),
		levels:        defaultLevels(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func defaultLevels() map[models.Subject][]models.LevelProgress {
	levels := make(map[models.Subject][]models.LevelProgress, len(models.Subjects))
	for _, s := range models.Subjects {
		levels[s] = models.NewLevelSet(s)
	}
	return levels
}

// LoadProfiles reads all profiles from the store, picks the active one
// (promoting the first, or creating a default profile when the store is
// empty), restores the active profile's level state and the settings, and
// decides the initial screen.
func (t *Tracker) LoadProfiles() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, err := t.profileStore.List()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	hadActive := false
	if len(list) == 0 {
		p := models.Profile{
			ID:        uuid.New().String(),
			Name:      DefaultProfileName,
			IsActive:  true,
			CreatedAt: t.now(),
			UpdatedAt: t.now(),
		}
		list = append(list, p)
		t.saveProfileLocked(p)
		hadActive = true
	} else {
		// A sync merge can leave zero or several profiles marked active;
		// keep the first and write back corrections.
		for i := range list {
			if !list[i].IsActive {
				continue
			}
			if hadActive {
				list[i].IsActive = false
				t.saveProfileLocked(list[i])
				continue
			}
			hadActive = true
		}
		if !hadActive {
			list[0].IsActive = true
			t.saveProfileLocked(list[0])
		}
	}

	t.list = list
	for i := range t.list {
		if t.list[i].IsActive {
			t.activeID = t.list[i].ID
			break
		}
	}
	t.loadLevelsLocked(t.activeID)

	if cfg, err := t.settingsStore.Load(); err != nil {
		t.recordWriteFailure("settings load failed", err)
	} else {
		t.cfg = cfg
	}

	if len(t.list) > 1 && !hadActive {
		t.screen = models.Screen{Kind: models.ScreenProfileSelection}
	} else {
		t.screen = models.Home()
	}
	return nil
}

// loadLevelsLocked rebuilds the in-memory level lists from the default sets
// overlaid with the profile's stored progress.
func (t *Tracker) loadLevelsLocked(profileID string) {
	t.levels = defaultLevels()
	if profileID == "" {
		return
	}

	stored, err := t.progressStore.ForProfile(profileID)
	if err != nil {
		t.recordWriteFailure("level progress load failed", err)
		return
	}

	for _, lp := range stored {
		set, ok := t.levels[lp.Subject]
		if !ok || lp.Level < 1 || lp.Level > len(set) {
			continue
		}
		cur := &set[lp.Level-1]
		if lp.Stars > cur.Stars {
			cur.Stars = min(lp.Stars, models.MaxStars)
		}
		if lp.Unlocked {
			cur.Unlocked = true
		}
	}
}

// Profiles returns a copy of the profile list in sort order.
func (t *Tracker) Profiles() []models.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Profile, len(t.list))
	copy(out, t.list)
	return out
}

// ActiveProfile returns the currently active profile.
func (t *Tracker) ActiveProfile() (models.Profile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.list {
		if t.list[i].ID == t.activeID {
			return t.list[i], true
		}
	}
	return models.Profile{}, false
}

// SelectProfile marks exactly one profile active and reloads its level
// state. An unknown id is a silent no-op.
func (t *Tracker) SelectProfile(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexOfLocked(id) < 0 {
		return
	}

	for i := range t.list {
		active := t.list[i].ID == id
		if t.list[i].IsActive != active {
			t.list[i].IsActive = active
			t.saveProfileLocked(t.list[i])
		}
	}
	t.activeID = id
	t.loadLevelsLocked(id)
}

// CreateProfile appends a new profile at the end of the sort order.
func (t *Tracker) CreateProfile(name string, avatarIndex, backgroundIndex int, makeActive bool) models.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	if makeActive {
		for i := range t.list {
			if t.list[i].IsActive {
				t.list[i].IsActive = false
				t.saveProfileLocked(t.list[i])
			}
		}
	}

	p := models.Profile{
		ID:              uuid.New().String(),
		Name:            name,
		AvatarIndex:     avatarIndex,
		BackgroundIndex: backgroundIndex,
		IsActive:        makeActive,
		SortOrder:       len(t.list),
		CreatedAt:       t.now(),
		UpdatedAt:       t.now(),
	}
	t.list = append(t.list, p)
	t.saveProfileLocked(p)

	if makeActive {
		t.activeID = p.ID
		t.loadLevelsLocked(p.ID)
	}
	return p
}

// UpdateProfile overwrites the display fields of the matching profile.
// An unknown id is a silent no-op.
func (t *Tracker) UpdateProfile(p models.Profile) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOfLocked(p.ID)
	if idx < 0 {
		return
	}

	cur := &t.list[idx]
	cur.Name = p.Name
	cur.AvatarIndex = p.AvatarIndex
	cur.BackgroundIndex = p.BackgroundIndex
	cur.UpdatedAt = t.now()
	t.saveProfileLocked(*cur)
}

// DeleteProfile removes a profile. Deleting the last remaining profile is
// rejected. If the active profile is deleted the first remaining profile
// becomes active and its level state is loaded.
func (t *Tracker) DeleteProfile(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOfLocked(id)
	if idx < 0 {
		return nil
	}
	if len(t.list) <= 1 {
		return ErrLastProfile
	}
	wasActive := t.list[idx].IsActive

	if err := t.profileStore.Delete(id); err != nil {
		t.recordWriteFailure("profile delete failed", err)
	}
	if err := t.progressStore.DeleteForProfile(id); err != nil {
		t.recordWriteFailure("progress delete failed", err)
	}

	t.list = append(t.list[:idx], t.list[idx+1:]...)
	for i := range t.list {
		if t.list[i].SortOrder != i {
			t.list[i].SortOrder = i
			t.saveProfileLocked(t.list[i])
		}
	}

	if wasActive {
		t.list[0].IsActive = true
		t.saveProfileLocked(t.list[0])
		t.activeID = t.list[0].ID
		t.loadLevelsLocked(t.activeID)
	}
	return nil
}

// ReorderProfiles moves the profiles at fromIndices to sit before the
// element currently at toIndex, then reassigns sort positions.
func (t *Tracker) ReorderProfiles(fromIndices []int, toIndex int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := make([]int, 0, len(fromIndices))
	for _, i := range fromIndices {
		if i >= 0 && i < len(t.list) {
			from = append(from, i)
		}
	}
	if len(from) == 0 {
		return
	}
	sort.Ints(from)

	moving := make(map[int]bool, len(from))
	for _, i := range from {
		moving[i] = true
	}

	moved := make([]models.Profile, 0, len(from))
	remaining := make([]models.Profile, 0, len(t.list)-len(from))
	insertAt := toIndex
	for i := range t.list {
		if moving[i] {
			moved = append(moved, t.list[i])
			if i < toIndex {
				insertAt--
			}
		} else {
			remaining = append(remaining, t.list[i])
		}
	}
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(remaining) {
		insertAt = len(remaining)
	}

	reordered := make([]models.Profile, 0, len(t.list))
	reordered = append(reordered, remaining[:insertAt]...)
	reordered = append(reordered, moved...)
	reordered = append(reordered, remaining[insertAt:]...)

	t.list = reordered
	for i := range t.list {
		if t.list[i].SortOrder != i {
			t.list[i].SortOrder = i
			t.saveProfileLocked(t.list[i])
		}
	}
}

// Levels returns a copy of the active profile's level list for a subject.
func (t *Tracker) Levels(subject models.Subject) []models.LevelProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.levels[subject]
	if !ok {
		return nil
	}
	out := make([]models.LevelProgress, len(set))
	copy(out, set)
	return out
}

// CompleteLesson records a finished lesson: adds the earned stars to the
// profile total, keeps the level's best stars, unlocks the next level when
// at least one star was earned, updates the streak and navigates to the
// lesson-complete screen.
func (t *Tracker) CompleteLesson(subject models.Subject, level, starsEarned int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !subject.Valid() {
		return ErrUnknownSubject
	}
	set := t.levels[subject]
	if level < 1 || level > len(set) {
		return ErrUnknownLevel
	}
	idx := t.indexOfLocked(t.activeID)
	if idx < 0 {
		return ErrNoActiveProfile
	}

	if starsEarned < 0 {
		starsEarned = 0
	}
	if starsEarned > models.MaxStars {
		starsEarned = models.MaxStars
	}

	p := &t.list[idx]
	p.TotalStars += starsEarned
	t.updateStreakLocked(p)
	p.UpdatedAt = t.now()

	lp := &set[level-1]
	if starsEarned > lp.Stars {
		lp.Stars = starsEarned
	}
	t.saveProgressLocked(*lp)

	if starsEarned >= 1 && level < len(set) {
		next := &set[level]
		if !next.Unlocked {
			next.Unlocked = true
			t.saveProgressLocked(*next)
		}
	}

	t.saveProfileLocked(*p)
	t.navigateLocked(models.Screen{
		Kind:    models.ScreenLessonComplete,
		Subject: subject,
		Stars:   starsEarned,
	})
	return nil
}

// updateStreakLocked applies the daily streak rule: a lesson on the day
// after the last active day extends the streak, the same day keeps it, and
// a longer gap restarts it at 1.
func (t *Tracker) updateStreakLocked(p *models.Profile) {
	today := models.UsageDate(t.now())
	if p.LastActiveDate == today {
		return
	}

	extended := false
	if p.LastActiveDate != "" {
		if last, err := time.Parse(models.UsageDateFormat, p.LastActiveDate); err == nil {
			extended = models.UsageDate(last.AddDate(0, 0, 1)) == today
		}
	}
	if extended {
		p.StreakDays++
	} else {
		p.StreakDays = 1
	}
	p.LastActiveDate = today
}

// SetPIN stores the hashed parent PIN and turns the PIN requirement on.
func (t *Tracker) SetPIN(pin string) error {
	hash, err := credentials.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}
	if err := t.creds.Delete(pinService, pinAccount); err != nil {
		return fmt.Errorf("failed to clear previous pin: %w", err)
	}
	if err := t.creds.Set(pinService, pinAccount, hash); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.PINRequired = true
	t.saveSettingsLocked()
	return nil
}

// VerifyPIN checks the PIN against the stored hash and, on success, sets
// the session-scoped verified flag. The PIN itself is never logged.
func (t *Tracker) VerifyPIN(pin string) bool {
	hash, err := t.creds.Get(pinService, pinAccount)
	if err != nil {
		return false
	}
	if !credentials.CheckPIN(hash, pin) {
		return false
	}

	t.mu.Lock()
	t.pinVerified = true
	t.mu.Unlock()
	return true
}

// ClearPIN removes the stored PIN, turns the requirement off and resets the
// verified flag.
func (t *Tracker) ClearPIN() error {
	if err := t.creds.Delete(pinService, pinAccount); err != nil {
		return fmt.Errorf("failed to delete pin: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.PINRequired = false
	t.pinVerified = false
	t.saveSettingsLocked()
	return nil
}

// HasPIN reports whether a parent PIN hash is stored.
func (t *Tracker) HasPIN() bool {
	_, err := t.creds.Get(pinService, pinAccount)
	return err == nil
}

// PINVerified reports the session-scoped verified flag.
func (t *Tracker) PINVerified() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pinVerified
}

// Settings returns the current settings.
func (t *Tracker) Settings() models.Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// UpdateSettings validates, applies and persists new settings, then
// re-evaluates the time limit (raising or clearing the break latch).
// Requiring a PIN while none is stored is rejected with ErrPINNotSet,
// since no parent session could ever be opened to undo it.
func (t *Tracker) UpdateSettings(s models.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.PINRequired && !t.HasPIN() {
		return ErrPINNotSet
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s.LastSyncAt = t.cfg.LastSyncAt
	t.cfg = s
	t.saveSettingsLocked()
	t.checkTimeLimitLocked()
	return nil
}

// StartTimeTracking loads today's usage (resetting it when the stored date
// is stale) and begins the 1-second tick. Calling it again replaces the
// running tick instead of stacking a second one.
func (t *Tracker) StartTimeTracking() {
	t.mu.Lock()

	if t.tickCancel != nil {
		close(t.tickCancel)
		t.tickCancel = nil
	}

	usage, err := t.usageStore.Load()
	if err != nil {
		t.recordWriteFailure("usage load failed", err)
		usage = models.DailyUsage{}
	}

	today := models.UsageDate(t.now())
	if usage.Date != today {
		usage = models.DailyUsage{Date: today}
		if err := t.usageStore.Save(usage); err != nil {
			t.recordWriteFailure("usage reset failed", err)
		}
	}
	t.usageDate = usage.Date
	t.usageSeconds = usage.Seconds
	t.breakLatched = false
	t.checkTimeLimitLocked()

	cancel := make(chan struct{})
	t.tickCancel = cancel
	ticker := t.newTicker(time.Second)
	t.mu.Unlock()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				t.tick()
			case <-cancel:
				return
			}
		}
	}()
}

// StopTimeTracking cancels the tick and flushes the counter immediately.
// Stopping when no tick is running is a no-op.
func (t *Tracker) StopTimeTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tickCancel == nil {
		return
	}
	close(t.tickCancel)
	t.tickCancel = nil
	t.flushUsageLocked()
}

// tick advances the usage counter by one second, handles midnight rollover,
// periodically flushes to storage and checks the time limit.
func (t *Tracker) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := models.UsageDate(t.now())
	if t.usageDate != today {
		t.usageDate = today
		t.usageSeconds = 0
		t.breakLatched = false
	}

	t.usageSeconds++
	if t.usageSeconds%usageFlushInterval == 0 {
		t.flushUsageLocked()
	}
	t.checkTimeLimitLocked()
}

// checkTimeLimitLocked fires the break transition on the rising edge only:
// once per crossing, and never while the settings screen is current. Going
// back under the limit (new day, raised limit, disabled limit) re-arms it.
func (t *Tracker) checkTimeLimitLocked() {
	over := t.cfg.TimeLimitEnabled && t.usageSeconds >= t.cfg.TimeLimitMinutes*60
	if !over {
		t.breakLatched = false
		return
	}
	if t.breakLatched {
		return
	}
	if t.screen.Kind == models.ScreenSettings {
		// Not latched, so the signal fires after the settings screen is left
		return
	}

	t.breakLatched = true
	t.navigateLocked(models.Screen{Kind: models.ScreenTimeForBreak})
}

// UsageSeconds returns the in-memory usage counter for the current day.
func (t *Tracker) UsageSeconds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usageSeconds
}

// SyncFailures returns how many best-effort writes have failed since start.
func (t *Tracker) SyncFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syncFailures
}

// Screen returns the current navigation target.
func (t *Tracker) Screen() models.Screen {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.screen
}

// GoHome navigates to the home screen.
func (t *Tracker) GoHome() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Home())
}

// ShowProgress navigates to the progress screen.
func (t *Tracker) ShowProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Screen{Kind: models.ScreenProgress})
}

// ShowSettings navigates to the settings screen.
func (t *Tracker) ShowSettings() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Screen{Kind: models.ScreenSettings})
}

// ShowProfileSelection navigates to the profile selection screen.
func (t *Tracker) ShowProfileSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Screen{Kind: models.ScreenProfileSelection})
}

// ShowProfileManagement navigates to the profile management screen.
func (t *Tracker) ShowProfileManagement() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Screen{Kind: models.ScreenProfileManagement})
}

// SelectSubject navigates to the subject selection screen for a subject.
func (t *Tracker) SelectSubject(subject models.Subject) error {
	if !subject.Valid() {
		return ErrUnknownSubject
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigateLocked(models.Screen{Kind: models.ScreenSubjectSelection, Subject: subject})
	return nil
}

// StartLesson navigates into a lesson. The level must be unlocked.
func (t *Tracker) StartLesson(subject models.Subject, level int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !subject.Valid() {
		return ErrUnknownSubject
	}
	set := t.levels[subject]
	if level < 1 || level > len(set) {
		return ErrUnknownLevel
	}
	if !set[level-1].Unlocked {
		return ErrLevelLocked
	}

	t.navigateLocked(models.Screen{Kind: models.ScreenLesson, Subject: subject, Level: level})
	return nil
}

// navigateLocked switches the current screen. Leaving the settings area
// resets the session-scoped PIN verification.
func (t *Tracker) navigateLocked(screen models.Screen) {
	if t.screen.Kind == models.ScreenSettings && screen.Kind != models.ScreenSettings {
		t.pinVerified = false
	}
	t.screen = screen
	t.checkTimeLimitLocked()
}

func (t *Tracker) indexOfLocked(id string) int {
	for i := range t.list {
		if t.list[i].ID == id {
			return i
		}
	}
	return -1
}

// saveProfileLocked persists a profile best-effort. In-memory state stays
// authoritative for the running session; failures are logged and counted so
// a client can surface a sync indicator.
func (t *Tracker) saveProfileLocked(p models.Profile) {
	if err := t.profileStore.Save(p); err != nil {
		t.syncFailures++
		t.log.Warn("profile write failed", zap.String("profile_id", p.ID), zap.Error(err))
	}
}

func (t *Tracker) saveProgressLocked(lp models.LevelProgress) {
	if err := t.progressStore.Save(t.activeID, lp); err != nil {
		t.syncFailures++
		t.log.Warn("progress write failed",
			zap.String("profile_id", t.activeID),
			zap.String("subject", string(lp.Subject)),
			zap.Int("level", lp.Level),
			zap.Error(err))
	}
}

func (t *Tracker) saveSettingsLocked() {
	if err := t.settingsStore.Save(t.cfg); err != nil {
		t.syncFailures++
		t.log.Warn("settings write failed", zap.Error(err))
	}
}

func (t *Tracker) flushUsageLocked() {
	usage := models.DailyUsage{Date: t.usageDate, Seconds: t.usageSeconds}
	if err := t.usageStore.Save(usage); err != nil {
		t.syncFailures++
		t.log.Warn("usage write failed", zap.Error(err))
	}
}

func (t *Tracker) recordWriteFailure(msg string, err error) {
	t.syncFailures++
	t.log.Warn(msg, zap.Error(err))
}
