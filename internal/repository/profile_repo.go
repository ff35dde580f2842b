package repository

import (
	"fmt"

	"flashkids/internal/database"
	"flashkids/internal/models"
)

// ProfileRepository handles database operations for child profiles
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// List retrieves all profiles ordered by sort position
func (r *ProfileRepository) List() ([]models.Profile, error) {
	query := `
		SELECT id, name, avatar_index, background_index, total_stars, streak_days,
		       last_active_date, is_active, sort_order, created_at, updated_at
		FROM profiles
		ORDER BY sort_order ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.AvatarIndex,
			&p.BackgroundIndex,
			&p.TotalStars,
			&p.StreakDays,
			&p.LastActiveDate,
			&p.IsActive,
			&p.SortOrder,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Save inserts the profile or updates it when the id already exists
func (r *ProfileRepository) Save(p models.Profile) error {
	update := `
		UPDATE profiles
		SET name = ?, avatar_index = ?, background_index = ?, total_stars = ?,
		    streak_days = ?, last_active_date = ?, is_active = ?, sort_order = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(update,
		p.Name, p.AvatarIndex, p.BackgroundIndex, p.TotalStars,
		p.StreakDays, p.LastActiveDate, p.IsActive, p.SortOrder, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check profile update: %w", err)
	}
	if affected > 0 {
		return nil
	}

	insert := `
		INSERT INTO profiles (id, name, avatar_index, background_index, total_stars,
		                      streak_days, last_active_date, is_active, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(insert,
		p.ID, p.Name, p.AvatarIndex, p.BackgroundIndex, p.TotalStars,
		p.StreakDays, p.LastActiveDate, p.IsActive, p.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Delete removes a profile; level progress rows cascade
func (r *ProfileRepository) Delete(id string) error {
	query := "DELETE FROM profiles WHERE id = ?"
	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
