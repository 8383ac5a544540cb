package model

import (
	"time"
)

// Session is the server-side revocation record for one issued bearer token.
// TokenID is embedded in the JWT as the "sid" claim; revoking the session
// makes the bearer token unusable even though its signature still verifies.
type Session struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	TokenID    string    `db:"token_id"`
	DeviceInfo string    `db:"device_info"`
	IPAddress  string    `db:"ip_address"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	LastUsedAt time.Time `db:"last_used_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}

func (s *Session) IsLive() bool {
	return s.IsActive && time.Now().Before(s.ExpiresAt)
}

// SessionView is the client-facing representation returned by the
// session listing endpoint.
type SessionView struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
	IsCurrent  bool      `json:"is_current"`
}

func (s *Session) View(currentTokenID string) SessionView {
	return SessionView{
		ID:         s.ID,
		DeviceInfo: s.DeviceInfo,
		IPAddress:  s.IPAddress,
		CreatedAt:  s.CreatedAt,
		LastUsed:   s.LastUsedAt,
		IsCurrent:  s.TokenID == currentTokenID,
	}
}
