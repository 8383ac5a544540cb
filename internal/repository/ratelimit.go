package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/model"
)

var ErrRateLimitNotFound = errors.New("rate limit record not found")

// RateLimitRepository persists per (identifier, endpoint) attempt counters.
// The window is anchored to the first attempt's timestamp: a lookup reuses
// any counter whose window_start is still within the window, rather than
// recomputing a rolling boundary.
type RateLimitRepository interface {
	WithTx(tx *sqlx.Tx) RateLimitRepository
	FindInWindow(identifier, endpoint string, window time.Duration) (*model.RateLimitAttempt, error)
	Create(identifier, endpoint string) (*model.RateLimitAttempt, error)
	Increment(id string, maxAttempts int) (bool, error)
	Clear(identifier, endpoint string) error
	DeleteOlderThan(retention time.Duration) (int64, error)
}

type rateLimitRepository struct {
	db sqlx.Ext
}

func NewRateLimitRepository(db *sqlx.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) WithTx(tx *sqlx.Tx) RateLimitRepository {
	return &rateLimitRepository{db: tx}
}

func (r *rateLimitRepository) FindInWindow(identifier, endpoint string, window time.Duration) (*model.RateLimitAttempt, error) {
	var attempt model.RateLimitAttempt
	windowStart := time.Now().Add(-window)

	query := `
		SELECT * FROM rate_limit_attempts
		WHERE identifier = $1 AND endpoint = $2 AND window_start >= $3
		LIMIT 1
	`

	err := sqlx.Get(r.db, &attempt, query, identifier, endpoint, windowStart)
	if err == sql.ErrNoRows {
		return nil, ErrRateLimitNotFound
	}
	if err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (r *rateLimitRepository) Create(identifier, endpoint string) (*model.RateLimitAttempt, error) {
	now := time.Now()
	attempt := &model.RateLimitAttempt{
		ID:          uuid.New().String(),
		Identifier:  identifier,
		Endpoint:    endpoint,
		Attempts:    1,
		WindowStart: now,
		UpdatedAt:   now,
		CreatedAt:   now,
	}

	query := `
		INSERT INTO rate_limit_attempts (id, identifier, endpoint, attempts, window_start, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(query,
		attempt.ID,
		attempt.Identifier,
		attempt.Endpoint,
		attempt.Attempts,
		attempt.WindowStart,
		attempt.UpdatedAt,
		attempt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return attempt, nil
}

// Increment bumps the counter in a single guarded UPDATE. The attempts <
// max predicate makes the increment atomic: two requests racing at the
// budget boundary cannot both succeed, and no update is lost.
func (r *rateLimitRepository) Increment(id string, maxAttempts int) (bool, error) {
	query := `
		UPDATE rate_limit_attempts
		SET attempts = attempts + 1, updated_at = $1
		WHERE id = $2 AND attempts < $3
	`

	result, err := r.db.Exec(query, time.Now(), id, maxAttempts)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// Clear deletes the counter outright, forgiving all prior attempts. Called
// after a successful login.
func (r *rateLimitRepository) Clear(identifier, endpoint string) error {
	query := `DELETE FROM rate_limit_attempts WHERE identifier = $1 AND endpoint = $2`
	_, err := r.db.Exec(query, identifier, endpoint)
	return err
}

// DeleteOlderThan removes counters past the retention horizon, independent
// of window semantics. Meant to run from cmd/sweep.
func (r *rateLimitRepository) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	query := `DELETE FROM rate_limit_attempts WHERE created_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
