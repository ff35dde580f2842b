package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"flashkids/internal/database"
	"flashkids/internal/models"
)

// Settings keys in the settings table.
const (
	keyTimeLimitEnabled = "time_limit_enabled"
	keyTimeLimitMinutes = "time_limit_minutes"
	keyPINRequired      = "pin_required"
	keySoundEnabled     = "sound_enabled"
	keyHapticsEnabled   = "haptics_enabled"
	keyLastSyncAt       = "last_sync_at"
)

// SettingsRepository handles database operations for app settings
type SettingsRepository struct {
	db database.DBTX
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db database.DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// getSetting retrieves a setting value by key
func (r *SettingsRepository) getSetting(key string) (string, error) {
	var value string
	query := r.db.GetDialect().SelectKV("settings")
	err := r.db.QueryRow(query, key).Scan(&value)
	return value, err
}

// setSetting updates or inserts a setting
func (r *SettingsRepository) setSetting(key, value string) error {
	query := r.db.GetDialect().UpsertKV("settings")
	_, err := r.db.Exec(query, key, value)
	return err
}

// Load reads the full settings record, falling back to defaults for any
// key that has never been written.
func (r *SettingsRepository) Load() (models.Settings, error) {
	s := models.DefaultSettings()

	if v, err := r.getBool(keyTimeLimitEnabled); err == nil {
		s.TimeLimitEnabled = v
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if v, err := r.getInt(keyTimeLimitMinutes); err == nil {
		s.TimeLimitMinutes = v
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if v, err := r.getBool(keyPINRequired); err == nil {
		s.PINRequired = v
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if v, err := r.getBool(keySoundEnabled); err == nil {
		s.SoundEnabled = v
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if v, err := r.getBool(keyHapticsEnabled); err == nil {
		s.HapticsEnabled = v
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}
	if v, err := r.getSetting(keyLastSyncAt); err == nil {
		if ts, perr := time.Parse(time.RFC3339, v); perr == nil {
			s.LastSyncAt = ts
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s, err
	}

	return s, nil
}

// Save writes the full settings record
func (r *SettingsRepository) Save(s models.Settings) error {
	pairs := []struct {
		key   string
		value string
	}{
		{keyTimeLimitEnabled, strconv.FormatBool(s.TimeLimitEnabled)},
		{keyTimeLimitMinutes, strconv.Itoa(s.TimeLimitMinutes)},
		{keyPINRequired, strconv.FormatBool(s.PINRequired)},
		{keySoundEnabled, strconv.FormatBool(s.SoundEnabled)},
		{keyHapticsEnabled, strconv.FormatBool(s.HapticsEnabled)},
	}
	if !s.LastSyncAt.IsZero() {
		pairs = append(pairs, struct {
			key   string
			value string
		}{keyLastSyncAt, s.LastSyncAt.Format(time.RFC3339)})
	}

	for _, p := range pairs {
		if err := r.setSetting(p.key, p.value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", p.key, err)
		}
	}
	return nil
}

func (r *SettingsRepository) getBool(key string) (bool, error) {
	v, err := r.getSetting(key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (r *SettingsRepository) getInt(key string) (int, error) {
	v, err := r.getSetting(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}
