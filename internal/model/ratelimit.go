package model

import (
	"time"
)

// RateLimitAttempt counts requests per (identifier, endpoint) within a
// window anchored to the first attempt's timestamp.
type RateLimitAttempt struct {
	ID          string    `db:"id"`
	Identifier  string    `db:"identifier"`
	Endpoint    string    `db:"endpoint"`
	Attempts    int       `db:"attempts"`
	WindowStart time.Time `db:"window_start"`
	UpdatedAt   time.Time `db:"updated_at"`
	CreatedAt   time.Time `db:"created_at"`
}
