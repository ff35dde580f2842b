package repository

import (
	"fmt"

	"flashkids/internal/database"
	"flashkids/internal/models"
)

// ProgressRepository handles database operations for per-level progress
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ForProfile retrieves all stored level progress for a profile
func (r *ProgressRepository) ForProfile(profileID string) ([]models.LevelProgress, error) {
	query := `
		SELECT subject, level, stars, unlocked
		FROM level_progress
		WHERE profile_id = ?
		ORDER BY subject, level ASC
	`
	rows, err := r.db.Query(query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query level progress: %w", err)
	}
	defer rows.Close()

	var progress []models.LevelProgress
	for rows.Next() {
		var lp models.LevelProgress
		if err := rows.Scan(&lp.Subject, &lp.Level, &lp.Stars, &lp.Unlocked); err != nil {
			return nil, fmt.Errorf("failed to scan level progress: %w", err)
		}
		progress = append(progress, lp)
	}

	return progress, rows.Err()
}

// Save inserts or updates the stored progress for one level
func (r *ProgressRepository) Save(profileID string, lp models.LevelProgress) error {
	update := `
		UPDATE level_progress
		SET stars = ?, unlocked = ?, updated_at = CURRENT_TIMESTAMP
		WHERE profile_id = ? AND subject = ? AND level = ?
	`
	result, err := r.db.Exec(update, lp.Stars, lp.Unlocked, profileID, lp.Subject, lp.Level)
	if err != nil {
		return fmt.Errorf("failed to update level progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check progress update: %w", err)
	}
	if affected > 0 {
		return nil
	}

	insert := `
		INSERT INTO level_progress (profile_id, subject, level, stars, unlocked)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(insert, profileID, lp.Subject, lp.Level, lp.Stars, lp.Unlocked); err != nil {
		return fmt.Errorf("failed to insert level progress: %w", err)
	}
	return nil
}

// DeleteForProfile removes all progress rows for a profile
func (r *ProgressRepository) DeleteForProfile(profileID string) error {
	query := "DELETE FROM level_progress WHERE profile_id = ?"
	if _, err := r.db.Exec(query, profileID); err != nil {
		return fmt.Errorf("failed to delete level progress: %w", err)
	}
	return nil
}
