package session

import "flashkids/internal/models"

// ProfileStore is the durable store contract for child profiles.
// List returns profiles in ascending sort order.
type ProfileStore interface {
	List() ([]models.Profile, error)
	Save(p models.Profile) error
	Delete(id string) error
}

// ProgressStore persists per-level progress keyed by profile.
type ProgressStore interface {
	ForProfile(profileID string) ([]models.LevelProgress, error)
	Save(profileID string, lp models.LevelProgress) error
	DeleteForProfile(profileID string) error
}

// SettingsStore persists the app settings record.
type SettingsStore interface {
	Load() (models.Settings, error)
	Save(s models.Settings) error
}

// UsageStore persists the daily usage counter and its date stamp.
type UsageStore interface {
	Load() (models.DailyUsage, error)
	Save(u models.DailyUsage) error
}
