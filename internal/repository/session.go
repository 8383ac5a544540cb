package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository tracks issued bearer-token grants. Sessions are only
// ever soft-revoked (is_active flipped), never hard-deleted.
type SessionRepository interface {
	WithTx(tx *sqlx.Tx) SessionRepository
	Create(userID, deviceInfo, ipAddress string, ttl time.Duration) (*model.Session, error)
	ByTokenID(tokenID string) (*model.Session, error)
	Touch(tokenID string) error
	Deactivate(tokenID string) (bool, error)
	DeactivateByID(userID, sessionID string) (bool, error)
	DeactivateAllByUser(userID, exceptTokenID string) (int64, error)
	ActiveByUser(userID string) ([]model.Session, error)
}

type sessionRepository struct {
	db sqlx.Ext
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepository{db: tx}
}

// Create opens a new active session. TokenID is a fresh random identifier
// meant to be embedded as the "sid" claim of the signed bearer token; it is
// not the bearer token itself.
func (r *sessionRepository) Create(userID, deviceInfo, ipAddress string, ttl time.Duration) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		TokenID:    uuid.New().String(),
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		IsActive:   true,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	query := `
		INSERT INTO sessions (id, user_id, token_id, device_info, ip_address, is_active, created_at, last_used_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(query,
		session.ID,
		session.UserID,
		session.TokenID,
		session.DeviceInfo,
		session.IPAddress,
		session.IsActive,
		session.CreatedAt,
		session.LastUsedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *sessionRepository) ByTokenID(tokenID string) (*model.Session, error) {
	session := &model.Session{}
	query := `SELECT * FROM sessions WHERE token_id = $1`

	err := sqlx.Get(r.db, session, query, tokenID)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}

	return session, err
}

func (r *sessionRepository) Touch(tokenID string) error {
	query := `UPDATE sessions SET last_used_at = $1 WHERE token_id = $2`
	_, err := r.db.Exec(query, time.Now(), tokenID)
	return err
}

// Deactivate closes the session with the given token identifier. Closing an
// already-inactive session is a no-op returning false, never an error.
func (r *sessionRepository) Deactivate(tokenID string) (bool, error) {
	query := `UPDATE sessions SET is_active = FALSE WHERE token_id = $1 AND is_active = TRUE`

	result, err := r.db.Exec(query, tokenID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// DeactivateByID closes one of the user's own sessions by row id. The user
// scope prevents revoking another user's session by guessing ids.
func (r *sessionRepository) DeactivateByID(userID, sessionID string) (bool, error) {
	query := `UPDATE sessions SET is_active = FALSE WHERE id = $1 AND user_id = $2 AND is_active = TRUE`

	result, err := r.db.Exec(query, sessionID, userID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// DeactivateAllByUser closes every active session for a user, optionally
// excluding one token identifier (the session issuing the request). Pass an
// empty exceptTokenID to revoke everything, e.g. after a password reset.
func (r *sessionRepository) DeactivateAllByUser(userID, exceptTokenID string) (int64, error) {
	query := `UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active = TRUE AND token_id != $2`

	result, err := r.db.Exec(query, userID, exceptTokenID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// ActiveByUser returns the user's live sessions, most recently used first.
func (r *sessionRepository) ActiveByUser(userID string) ([]model.Session, error) {
	sessions := []model.Session{}
	query := `
		SELECT * FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY last_used_at DESC
	`

	err := sqlx.Select(r.db, &sessions, query, userID, time.Now())
	return sessions, err
}
