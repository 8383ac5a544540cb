package model

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	AuthProviderEmail     = "email"
	AuthProviderGoogle    = "google"
	AuthProviderLinkedIn  = "linkedin"
	AuthProviderMagicLink = "magic_link"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	FirstName    *string    `db:"first_name"`
	LastName     *string    `db:"last_name"`
	PasswordHash *string    `db:"password_hash"` // Nullable for passwordless/OAuth users
	IsActive     bool       `db:"is_active"`
	IsVerified   bool       `db:"is_verified"`
	Role         string     `db:"role"`
	AuthProvider string     `db:"auth_provider"`
	ProviderID   *string    `db:"provider_id"`
	AvatarURL    *string    `db:"avatar_url"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserView is the client-facing representation of a user.
// The password hash is never serialized.
type UserView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    *string    `json:"first_name,omitempty"`
	LastName     *string    `json:"last_name,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	Role         string     `json:"role"`
	AuthProvider string     `json:"auth_provider"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (u *User) View() UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
		AvatarURL:    u.AvatarURL,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
