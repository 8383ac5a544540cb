package validation

import (
	"errors"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 characters")
)

// ValidatePassword enforces password length bounds.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	// bcrypt silently truncates passwords longer than 72 bytes
	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	return nil
}
