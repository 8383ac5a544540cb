package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository is the store for single-use, time-boxed tokens (magic
// links, password resets, email verification). Missing, already-used and
// expired tokens are deliberately indistinguishable: every failed lookup is
// ErrTokenNotFound so callers can't leak token state.
type TokenRepository interface {
	WithTx(tx *sqlx.Tx) TokenRepository
	Issue(email, tokenType string, ttl time.Duration) (string, error)
	Consume(token, tokenType string) (*model.Token, error)
	Peek(token, tokenType string) (*model.Token, error)
	DeleteExpired(olderThan time.Duration) (int64, error)
}

type tokenRepository struct {
	db sqlx.Ext
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) WithTx(tx *sqlx.Tx) TokenRepository {
	return &tokenRepository{db: tx}
}

// Issue supersedes any unconsumed token for (email, type) and persists a
// fresh one. The returned plaintext is the only time the token is available
// in cleartext.
func (r *tokenRepository) Issue(email, tokenType string, ttl time.Duration) (string, error) {
	_, err := r.db.Exec(
		`DELETE FROM tokens WHERE email = $1 AND type = $2 AND used_at IS NULL`,
		email, tokenType,
	)
	if err != nil {
		return "", err
	}

	plaintext, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	query := `
		INSERT INTO tokens (id, email, type, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.Exec(query,
		uuid.New().String(),
		email,
		tokenType,
		plaintext,
		now.Add(ttl),
		now,
	)
	if err != nil {
		return "", err
	}

	return plaintext, nil
}

// Consume atomically marks the token used and returns it. Two requests
// racing on the same token string hit a single UPDATE ... RETURNING, so only
// the first succeeds; the second gets ErrTokenNotFound.
func (r *tokenRepository) Consume(token, tokenType string) (*model.Token, error) {
	var t model.Token
	now := time.Now()

	query := `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2
		AND type = $3
		AND used_at IS NULL
		AND expires_at > $4
		RETURNING *
	`

	err := sqlx.Get(r.db, &t, query, now, token, tokenType, now)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// Peek returns a valid token without consuming it. Used by the password
// reset verify step, where the frontend checks the link before showing the
// new-password form.
func (r *tokenRepository) Peek(token, tokenType string) (*model.Token, error) {
	var t model.Token

	query := `
		SELECT * FROM tokens
		WHERE token = $1
		AND type = $2
		AND used_at IS NULL
		AND expires_at > $3
	`

	err := sqlx.Get(r.db, &t, query, token, tokenType, time.Now())
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// DeleteExpired removes used and expired tokens older than the given
// duration. Expired tokens are inert either way; this is an optional
// maintenance operation meant to run from cmd/sweep.
func (r *tokenRepository) DeleteExpired(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `
		DELETE FROM tokens
		WHERE (used_at IS NOT NULL AND used_at < $1)
		   OR (expires_at < $1)
	`
	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// generateToken returns 32 cryptographically random bytes, URL-safe encoded.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
