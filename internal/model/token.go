package model

import (
	"time"
)

type Token struct {
	ID        string     `db:"id"`
	Email     string     `db:"email"`
	Type      string     `db:"type"` // "magic_link", "password_reset" or "email_verify"
	Token     string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

const (
	TokenTypeMagicLink     = "magic_link"
	TokenTypePasswordReset = "password_reset"
	TokenTypeEmailVerify   = "email_verify"
)

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *Token) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
