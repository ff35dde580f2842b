package models

import (
	"fmt"
	"time"
)

// AllowedTimeLimits are the accepted daily limit values in minutes.
var AllowedTimeLimits = []int{15, 30, 45, 60}

// Settings holds the parent-configurable options for the whole app.
type Settings struct {
	TimeLimitEnabled bool
	TimeLimitMinutes int
	PINRequired      bool
	SoundEnabled     bool
	HapticsEnabled   bool
	LastSyncAt       time.Time // zero value if never synced
}

// DefaultSettings returns settings with default values.
func DefaultSettings() Settings {
	return Settings{
		TimeLimitEnabled: false,
		TimeLimitMinutes: 30,
		SoundEnabled:     true,
		HapticsEnabled:   true,
	}
}

// Validate checks that the time limit is one of the allowed values.
func (s Settings) Validate() error {
	for _, allowed := range AllowedTimeLimits {
		if s.TimeLimitMinutes == allowed {
			return nil
		}
	}
	return fmt.Errorf("time limit must be one of %v minutes, got %d", AllowedTimeLimits, s.TimeLimitMinutes)
}
