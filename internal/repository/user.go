package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/halcyonlabs/authbase/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type UserRepository interface {
	WithTx(tx *sqlx.Tx) UserRepository
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	Update(user *model.User) error
	Deactivate(id string) error
	List(offset, limit int) ([]model.User, error)
}

type userRepository struct {
	db sqlx.Ext
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(user *model.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, is_active, is_verified, role, auth_provider, provider_id, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsActive,
		user.IsVerified,
		user.Role,
		user.AuthProvider,
		user.ProviderID,
		user.AvatarURL,
		user.CreatedAt,
	)
	if err != nil {
		// Check for unique constraint violation (works for both SQLite and PostgreSQL)
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := sqlx.Get(r.db, user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE email = $1`

	err := sqlx.Get(r.db, user, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) Update(user *model.User) error {
	now := time.Now()
	user.UpdatedAt = &now

	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, password_hash = $4,
		    is_active = $5, is_verified = $6, role = $7, avatar_url = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := r.db.Exec(query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsActive,
		user.IsVerified,
		user.Role,
		user.AvatarURL,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

// Deactivate marks a user inactive. User rows are never hard-deleted so that
// sessions and audit history keep a valid owner.
func (r *userRepository) Deactivate(id string) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *userRepository) List(offset, limit int) ([]model.User, error) {
	users := []model.User{}
	query := `SELECT * FROM users ORDER BY created_at LIMIT $1 OFFSET $2`

	err := sqlx.Select(r.db, &users, query, limit, offset)
	return users, err
}
