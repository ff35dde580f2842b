package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"flashkids/internal/database"
	"flashkids/internal/models"
)

// Keys in the kv table.
const (
	keyUsageDate    = "usage_date"
	keyUsageSeconds = "usage_seconds"
)

// UsageRepository stores the daily usage counter in the kv table
type UsageRepository struct {
	db database.DBTX
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db database.DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// Load reads the stored daily usage. A store with no usage yet returns a
// zero-value DailyUsage and no error.
func (r *UsageRepository) Load() (models.DailyUsage, error) {
	var usage models.DailyUsage

	date, err := r.get(keyUsageDate)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, nil
	}
	if err != nil {
		return usage, fmt.Errorf("failed to load usage date: %w", err)
	}
	usage.Date = date

	seconds, err := r.get(keyUsageSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, nil
	}
	if err != nil {
		return usage, fmt.Errorf("failed to load usage seconds: %w", err)
	}

	n, err := strconv.Atoi(seconds)
	if err != nil {
		return usage, fmt.Errorf("corrupt usage seconds %q: %w", seconds, err)
	}
	if n < 0 {
		n = 0
	}
	usage.Seconds = n

	return usage, nil
}

// Save writes the daily usage counter and its date stamp
func (r *UsageRepository) Save(usage models.DailyUsage) error {
	if err := r.set(keyUsageDate, usage.Date); err != nil {
		return fmt.Errorf("failed to save usage date: %w", err)
	}
	if err := r.set(keyUsageSeconds, strconv.Itoa(usage.Seconds)); err != nil {
		return fmt.Errorf("failed to save usage seconds: %w", err)
	}
	return nil
}

func (r *UsageRepository) get(key string) (string, error) {
	var value string
	query := r.db.GetDialect().SelectKV("kv")
	err := r.db.QueryRow(query, key).Scan(&value)
	return value, err
}

func (r *UsageRepository) set(key, value string) error {
	query := r.db.GetDialect().UpsertKV("kv")
	_, err := r.db.Exec(query, key, value)
	return err
}
