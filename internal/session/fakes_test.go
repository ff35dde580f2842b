package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"flashkids/internal/models"
)

// fakeProfileStore is an in-memory ProfileStore.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	failSave bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]models.Profile)}
}

func (f *fakeProfileStore) List() ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeProfileStore) Save(p models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSave {
		return errors.New("store unavailable")
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.profiles, id)
	return nil
}

// fakeProgressStore is an in-memory ProgressStore.
type fakeProgressStore struct {
	mu   sync.Mutex
	rows map[string][]models.LevelProgress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[string][]models.LevelProgress)}
}

func (f *fakeProgressStore) ForProfile(profileID string) ([]models.LevelProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.LevelProgress, len(f.rows[profileID]))
	copy(out, f.rows[profileID])
	return out, nil
}

func (f *fakeProgressStore) Save(profileID string, lp models.LevelProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.rows[profileID]
	for i := range rows {
		if rows[i].Subject == lp.Subject && rows[i].Level == lp.Level {
			rows[i] = lp
			return nil
		}
	}
	f.rows[profileID] = append(rows, lp)
	return nil
}

func (f *fakeProgressStore) DeleteForProfile(profileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rows, profileID)
	return nil
}

// fakeSettingsStore is an in-memory SettingsStore.
type fakeSettingsStore struct {
	mu  sync.Mutex
	cfg models.Settings
	set bool
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{}
}

func (f *fakeSettingsStore) Load() (models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.set {
		return models.DefaultSettings(), nil
	}
	return f.cfg, nil
}

func (f *fakeSettingsStore) Save(s models.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cfg = s
	f.set = true
	return nil
}

// fakeUsageStore is an in-memory UsageStore.
type fakeUsageStore struct {
	mu    sync.Mutex
	usage models.DailyUsage
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{}
}

func (f *fakeUsageStore) Load() (models.DailyUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage, nil
}

func (f *fakeUsageStore) Save(u models.DailyUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = u
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// fakeTicker is a manually driven Ticker.
type fakeTicker struct {
	ch      chan time.Time
	stopped bool
	mu      sync.Mutex
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
