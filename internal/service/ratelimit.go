package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/halcyonlabs/authbase/internal/repository"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// Endpoint tags for rate-limit counters.
const (
	RateLimitEndpointLogin         = "login"
	RateLimitEndpointMagicLink     = "magic_link"
	RateLimitEndpointPasswordReset = "password_reset"
)

// RateLimitService counts attempts per (identifier, endpoint) against a
// persisted counter, so limits hold across instances and restarts.
//
// TODO: the window is anchored to the first attempt's timestamp rather than
// rolling, so a counter can linger just under one window and reset at an
// arbitrary calendar moment. Behavior kept as-is pending product
// clarification.
type RateLimitService struct {
	rateLimitRepository repository.RateLimitRepository
}

func NewRateLimitService(rateLimitRepository repository.RateLimitRepository) *RateLimitService {
	return &RateLimitService{rateLimitRepository: rateLimitRepository}
}

// Check records an attempt and reports whether it is allowed. Must be called
// before the guarded operation: when it returns false the operation must not
// execute.
func (s *RateLimitService) Check(identifier, endpoint string, maxAttempts int, window time.Duration) (bool, error) {
	attempt, err := s.rateLimitRepository.FindInWindow(identifier, endpoint, window)
	if err != nil {
		if errors.Is(err, repository.ErrRateLimitNotFound) {
			_, err = s.rateLimitRepository.Create(identifier, endpoint)
			if err != nil {
				return false, fmt.Errorf("failed to create rate limit record: %w", err)
			}
			return true, nil
		}
		return false, fmt.Errorf("failed to look up rate limit record: %w", err)
	}

	if attempt.Attempts >= maxAttempts {
		return false, nil
	}

	allowed, err := s.rateLimitRepository.Increment(attempt.ID, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit record: %w", err)
	}

	return allowed, nil
}

// Clear forgives all recorded attempts for the identifier/endpoint pair,
// e.g. after a successful login.
func (s *RateLimitService) Clear(identifier, endpoint string) {
	err := s.rateLimitRepository.Clear(identifier, endpoint)
	if err != nil {
		slog.Warn("failed to clear rate limit", "error", err, "identifier", identifier, "endpoint", endpoint)
	}
}

// Sweep deletes counters older than the retention horizon. Intended to run
// periodically from cmd/sweep, independent of the request path.
func (s *RateLimitService) Sweep(retention time.Duration) (int64, error) {
	return s.rateLimitRepository.DeleteOlderThan(retention)
}

// RetryHint renders the human-readable retry-after message for an
// over-budget request.
func RetryHint(action string, window time.Duration) string {
	return fmt.Sprintf("Too many %s requests. Please try again in %d minutes.", action, int(window.Minutes()))
}
