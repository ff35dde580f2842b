package models

import "time"

// Profile represents a child's independent progress and identity record.
// Exactly one profile is active at a time among the stored set.
type Profile struct {
	ID              string
	Name            string
	AvatarIndex     int
	BackgroundIndex int
	TotalStars      int
	StreakDays      int
	LastActiveDate  string // "2006-01-02", empty until the first completed lesson
	IsActive        bool
	SortOrder       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
