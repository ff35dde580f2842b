// Package backup exports and imports the full app state as a single JSON
// document, used by the backup CLI and for device-to-device transfer.
package backup

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"flashkids/internal/database"
	"flashkids/internal/models"
	"flashkids/internal/repository"
)

// FormatVersion identifies the backup document layout.
const FormatVersion = "1.0"

// Data is the complete backup document.
type Data struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Profiles   []ProfileBackup   `json:"profiles"`
	Progress   []ProgressBackup  `json:"progress"`
	Settings   SettingsBackup    `json:"settings"`
	Usage      models.DailyUsage `json:"usage"`
}

// ProfileBackup is one profile record in a backup document.
type ProfileBackup struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AvatarIndex     int       `json:"avatar_index"`
	BackgroundIndex int       `json:"background_index"`
	TotalStars      int       `json:"total_stars"`
	StreakDays      int       `json:"streak_days"`
	LastActiveDate  string    `json:"last_active_date"`
	IsActive        bool      `json:"is_active"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProgressBackup is one level-progress record in a backup document.
type ProgressBackup struct {
	ProfileID string `json:"profile_id"`
	Subject   string `json:"subject"`
	Level     int    `json:"level"`
	Stars     int    `json:"stars"`
	Unlocked  bool   `json:"unlocked"`
}

// SettingsBackup is the settings record in a backup document.
type SettingsBackup struct {
	TimeLimitEnabled bool   `json:"time_limit_enabled"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	PINRequired      bool   `json:"pin_required"`
	SoundEnabled     bool   `json:"sound_enabled"`
	HapticsEnabled   bool   `json:"haptics_enabled"`
	LastSyncAt       string `json:"last_sync_at,omitempty"`
}

// Service handles backup export and import.
type Service struct {
	db  *database.DB
	log *zap.Logger
}

// NewService creates a new backup service.
func NewService(db *database.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

// Export writes a complete backup document to a file.
func (s *Service) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(file)
}

// ExportToWriter writes a complete backup document to w.
func (s *Service) ExportToWriter(w io.Writer) error {
	data := &Data{
		Version:    FormatVersion,
		ExportedAt: time.Now(),
	}

	if err := s.exportProfiles(data); err != nil {
		return fmt.Errorf("failed to export profiles: %w", err)
	}
	if err := s.exportProgress(data); err != nil {
		return fmt.Errorf("failed to export progress: %w", err)
	}
	if err := s.exportSettings(data); err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}
	if err := s.exportUsage(data); err != nil {
		return fmt.Errorf("failed to export usage: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("backup exported",
		zap.Int("profiles", len(data.Profiles)),
		zap.Int("progress_rows", len(data.Progress)))
	return nil
}

// Import merges a backup file into the database.
func (s *Service) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader merges a backup document into the database. Profiles are
// resolved per record by last-writer-wins on updated_at; progress rows merge
// keeping the best stars and any unlock. The sync timestamp is stamped on
// completion.
func (s *Service) ImportFromReader(r io.Reader) error {
	var data Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if data.Version != FormatVersion {
		return fmt.Errorf("unsupported backup version %q", data.Version)
	}

	s.log.Info("importing backup",
		zap.Time("exported_at", data.ExportedAt),
		zap.Int("profiles", len(data.Profiles)))

	if err := s.importProfiles(data.Profiles); err != nil {
		return fmt.Errorf("failed to import profiles: %w", err)
	}
	if err := s.importProgress(data.Progress); err != nil {
		return fmt.Errorf("failed to import progress: %w", err)
	}
	if err := s.importSettings(data.Settings); err != nil {
		return fmt.Errorf("failed to import settings: %w", err)
	}
	if err := s.importUsage(data.Usage); err != nil {
		return fmt.Errorf("failed to import usage: %w", err)
	}

	if err := s.stampSyncTime(time.Now()); err != nil {
		return fmt.Errorf("failed to record sync time: %w", err)
	}

	s.log.Info("backup import completed")
	return nil
}

func (s *Service) exportProfiles(data *Data) error {
	query := `
		SELECT id, name, avatar_index, background_index, total_stars, streak_days,
		       last_active_date, is_active, sort_order, created_at, updated_at
		FROM profiles
		ORDER BY sort_order ASC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProfileBackup
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarIndex, &p.BackgroundIndex,
			&p.TotalStars, &p.StreakDays, &p.LastActiveDate, &p.IsActive,
			&p.SortOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		data.Profiles = append(data.Profiles, p)
	}
	return rows.Err()
}

func (s *Service) exportProgress(data *Data) error {
	query := `
		SELECT profile_id, subject, level, stars, unlocked
		FROM level_progress
		ORDER BY profile_id, subject, level ASC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProgressBackup
		if err := rows.Scan(&p.ProfileID, &p.Subject, &p.Level, &p.Stars, &p.Unlocked); err != nil {
			return err
		}
		data.Progress = append(data.Progress, p)
	}
	return rows.Err()
}

func (s *Service) exportSettings(data *Data) error {
	cfg, err := repository.NewSettingsRepository(s.db).Load()
	if err != nil {
		return err
	}
	data.Settings = SettingsBackup{
		TimeLimitEnabled: cfg.TimeLimitEnabled,
		TimeLimitMinutes: cfg.TimeLimitMinutes,
		PINRequired:      cfg.PINRequired,
		SoundEnabled:     cfg.SoundEnabled,
		HapticsEnabled:   cfg.HapticsEnabled,
	}
	if !cfg.LastSyncAt.IsZero() {
		data.Settings.LastSyncAt = cfg.LastSyncAt.Format(time.RFC3339)
	}
	return nil
}

func (s *Service) exportUsage(data *Data) error {
	usage, err := repository.NewUsageRepository(s.db).Load()
	if err != nil {
		return err
	}
	data.Usage = usage
	return nil
}

func (s *Service) importProfiles(profiles []ProfileBackup) error {
	for _, p := range profiles {
		var existingUpdated time.Time
		err := s.db.QueryRow("SELECT updated_at FROM profiles WHERE id = ?", p.ID).Scan(&existingUpdated)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			insert := `
				INSERT INTO profiles (id, name, avatar_index, background_index, total_stars,
				                      streak_days, last_active_date, is_active, sort_order,
				                      created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			if _, err := s.db.Exec(insert, p.ID, p.Name, p.AvatarIndex, p.BackgroundIndex,
				p.TotalStars, p.StreakDays, p.LastActiveDate, p.IsActive, p.SortOrder,
				p.CreatedAt, p.UpdatedAt); err != nil {
				return fmt.Errorf("failed to import profile %s: %w", p.ID, err)
			}
		case err != nil:
			return fmt.Errorf("failed to check profile %s: %w", p.ID, err)
		case p.UpdatedAt.After(existingUpdated):
			update := `
				UPDATE profiles
				SET name = ?, avatar_index = ?, background_index = ?, total_stars = ?,
				    streak_days = ?, last_active_date = ?, is_active = ?, sort_order = ?,
				    updated_at = ?
				WHERE id = ?
			`
			if _, err := s.db.Exec(update, p.Name, p.AvatarIndex, p.BackgroundIndex,
				p.TotalStars, p.StreakDays, p.LastActiveDate, p.IsActive, p.SortOrder,
				p.UpdatedAt, p.ID); err != nil {
				return fmt.Errorf("failed to update profile %s: %w", p.ID, err)
			}
		default:
			s.log.Debug("keeping newer local profile", zap.String("profile_id", p.ID))
		}
	}
	return nil
}

// importProgress merges by best stars and sticky unlocks, so an older backup
// can never take earned progress away.
func (s *Service) importProgress(progress []ProgressBackup) error {
	for _, p := range progress {
		var stars int
		var unlocked bool
		err := s.db.QueryRow(
			"SELECT stars, unlocked FROM level_progress WHERE profile_id = ? AND subject = ? AND level = ?",
			p.ProfileID, p.Subject, p.Level).Scan(&stars, &unlocked)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			insert := `
				INSERT INTO level_progress (profile_id, subject, level, stars, unlocked)
				VALUES (?, ?, ?, ?, ?)
			`
			if _, err := s.db.Exec(insert, p.ProfileID, p.Subject, p.Level, p.Stars, p.Unlocked); err != nil {
				return fmt.Errorf("failed to import progress for profile %s: %w", p.ProfileID, err)
			}
		case err != nil:
			return fmt.Errorf("failed to check progress for profile %s: %w", p.ProfileID, err)
		case p.Stars > stars || (p.Unlocked && !unlocked):
			merged := p.Stars
			if stars > merged {
				merged = stars
			}
			update := `
				UPDATE level_progress
				SET stars = ?, unlocked = ?, updated_at = CURRENT_TIMESTAMP
				WHERE profile_id = ? AND subject = ? AND level = ?
			`
			if _, err := s.db.Exec(update, merged, p.Unlocked || unlocked,
				p.ProfileID, p.Subject, p.Level); err != nil {
				return fmt.Errorf("failed to merge progress for profile %s: %w", p.ProfileID, err)
			}
		}
	}
	return nil
}

func (s *Service) importSettings(sb SettingsBackup) error {
	cfg := models.Settings{
		TimeLimitEnabled: sb.TimeLimitEnabled,
		TimeLimitMinutes: sb.TimeLimitMinutes,
		PINRequired:      sb.PINRequired,
		SoundEnabled:     sb.SoundEnabled,
		HapticsEnabled:   sb.HapticsEnabled,
	}
	if sb.LastSyncAt != "" {
		if ts, err := time.Parse(time.RFC3339, sb.LastSyncAt); err == nil {
			cfg.LastSyncAt = ts
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return repository.NewSettingsRepository(s.db).Save(cfg)
}

// importUsage keeps the larger counter when both sides are on the same day,
// and the newer date otherwise.
func (s *Service) importUsage(incoming models.DailyUsage) error {
	if incoming.Date == "" {
		return nil
	}

	repo := repository.NewUsageRepository(s.db)
	local, err := repo.Load()
	if err != nil {
		return err
	}

	switch {
	case local.Date == incoming.Date:
		if incoming.Seconds > local.Seconds {
			return repo.Save(incoming)
		}
	case incoming.Date > local.Date:
		return repo.Save(incoming)
	}
	return nil
}

func (s *Service) stampSyncTime(at time.Time) error {
	cfg, err := repository.NewSettingsRepository(s.db).Load()
	if err != nil {
		return err
	}
	cfg.LastSyncAt = at
	return repository.NewSettingsRepository(s.db).Save(cfg)
}
