package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/halcyonlabs/authbase/internal/model"
	"github.com/halcyonlabs/authbase/internal/repository"
	"github.com/halcyonlabs/authbase/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrAccountInactive    = errors.New("inactive user")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrAlreadyVerified    = errors.New("email already verified")
)

// AuthResult is the payload returned by every successful token-bearing flow.
type AuthResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        model.UserView `json:"user"`
}

// LinkResult reports a token-request outcome. URL carries the link when the
// mailer did not actually send (development convenience); Sent reports
// transport-level mailer success.
type LinkResult struct {
	URL  string
	Sent bool
}

// AuthService orchestrates credential checks, token issuance and session
// creation. It owns no storage; repositories and the mailer are injected.
type AuthService struct {
	db                  *sqlx.DB
	userRepository      repository.UserRepository
	tokenRepository     repository.TokenRepository
	sessionRepository   repository.SessionRepository
	rateLimitService    *RateLimitService
	emailService        *EmailService
	frontendURL         string
	jwtSecret           string
	jwtExpiry           time.Duration
	sessionExpiry       time.Duration
	magicLinkExpiry     time.Duration
	passwordResetExpiry time.Duration
	emailVerifyExpiry   time.Duration
}

func NewAuthService(
	db *sqlx.DB,
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	sessionRepository repository.SessionRepository,
	rateLimitService *RateLimitService,
	emailService *EmailService,
	frontendURL string,
	jwtSecret string,
	jwtExpiry time.Duration,
	sessionExpiry time.Duration,
	magicLinkExpiry time.Duration,
	passwordResetExpiry time.Duration,
	emailVerifyExpiry time.Duration,
) *AuthService {
	return &AuthService{
		db:                  db,
		userRepository:      userRepository,
		tokenRepository:     tokenRepository,
		sessionRepository:   sessionRepository,
		rateLimitService:    rateLimitService,
		emailService:        emailService,
		frontendURL:         frontendURL,
		jwtSecret:           jwtSecret,
		jwtExpiry:           jwtExpiry,
		sessionExpiry:       sessionExpiry,
		magicLinkExpiry:     magicLinkExpiry,
		passwordResetExpiry: passwordResetExpiry,
		emailVerifyExpiry:   emailVerifyExpiry,
	}
}

// Register creates a password account, sends a verification email
// (best-effort) and logs the user straight in.
func (s *AuthService) Register(email, password string, firstName, lastName *string, device, ip string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: &hash,
		IsActive:     true,
		Role:         model.RoleUser,
		AuthProvider: model.AuthProviderEmail,
		CreatedAt:    time.Now(),
	}

	err = s.userRepository.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Verification email is best-effort: registration succeeds regardless.
	_, err = s.sendVerification(user)
	if err != nil {
		slog.Warn("failed to send verification email", "error", err, "email", email)
	}

	slog.Info("user registered", "user_id", user.ID, "email", email)
	return s.issueTokens(user, device, ip)
}

// Login authenticates with email and password. On success the login
// rate-limit counter for the caller's address is cleared.
func (s *AuthService) Login(email, password, device, ip string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		// Passwordless accounts fail the same way as bad passwords so the
		// response doesn't reveal account type.
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if s.rateLimitService != nil && ip != "" {
		s.rateLimitService.Clear(ip, RateLimitEndpointLogin)
	}

	slog.Info("user logged in with password", "user_id", user.ID, "email", email)
	return s.issueTokens(user, device, ip)
}

// RequestMagicLink issues a magic-link token and mails it. Callers must
// return a generic acceptance message whether or not the email exists.
func (s *AuthService) RequestMagicLink(email string) (*LinkResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	token, err := s.tokenRepository.Issue(email, model.TokenTypeMagicLink, s.magicLinkExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to issue magic link token: %w", err)
	}

	url := fmt.Sprintf("%s/auth/magic-link?token=%s", s.frontendURL, token)

	sent, err := s.emailService.SendMagicLink(email, url)
	if err != nil {
		// Mailer failure never fails the flow; the token is already issued.
		slog.Error("failed to send magic link email", "error", err, "email", email)
	}

	slog.Info("magic link requested", "email", email)
	return &LinkResult{URL: url, Sent: sent}, nil
}

// VerifyMagicLink consumes the token and signs the user in, creating a
// passwordless account on first use.
func (s *AuthService) VerifyMagicLink(token, device, ip string) (*AuthResult, error) {
	t, err := s.tokenRepository.Consume(token, model.TokenTypeMagicLink)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.userRepository.ByEmail(t.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		// First sign-in: provision a passwordless account. The magic link
		// itself proves email ownership.
		user = &model.User{
			ID:           uuid.New().String(),
			Email:        t.Email,
			IsActive:     true,
			IsVerified:   true,
			Role:         model.RoleUser,
			AuthProvider: model.AuthProviderMagicLink,
			CreatedAt:    time.Now(),
		}
		err = s.userRepository.Create(user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new passwordless user created", "user_id", user.ID, "email", user.Email)
	} else if !user.IsVerified {
		user.IsVerified = true
		err = s.userRepository.Update(user)
		if err != nil {
			slog.Warn("failed to mark email verified", "error", err, "user_id", user.ID)
		}
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	slog.Info("user authenticated via magic link", "user_id", user.ID, "email", user.Email)
	return s.issueTokens(user, device, ip)
}

// RequestPasswordReset issues a reset token for existing password accounts.
// Unknown emails and passwordless accounts succeed silently to prevent
// enumeration.
func (s *AuthService) RequestPasswordReset(email string) (*LinkResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		slog.Info("password reset requested for non-existent email", "email", email)
		return &LinkResult{}, nil
	}
	if !user.HasPassword() {
		slog.Info("password reset requested for passwordless account", "email", email)
		return &LinkResult{}, nil
	}

	token, err := s.tokenRepository.Issue(email, model.TokenTypePasswordReset, s.passwordResetExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to issue password reset token: %w", err)
	}

	url := fmt.Sprintf("%s/auth/reset-password?token=%s", s.frontendURL, token)

	sent, err := s.emailService.SendPasswordReset(email, url)
	if err != nil {
		slog.Error("failed to send password reset email", "error", err, "email", email)
	}

	slog.Info("password reset requested", "email", email)
	return &LinkResult{URL: url, Sent: sent}, nil
}

// VerifyPasswordResetToken checks a reset token without consuming it, so the
// frontend can validate the link before showing the new-password form.
func (s *AuthService) VerifyPasswordResetToken(token string) (string, error) {
	t, err := s.tokenRepository.Peek(token, model.TokenTypePasswordReset)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return t.Email, nil
}

// ConfirmPasswordReset consumes the reset token, sets the new password and
// revokes every standing session for the user in a single transaction, so a
// racing consume can't leave sessions alive with a rotated credential.
func (s *AuthService) ConfirmPasswordReset(token, newPassword string) error {
	err := validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer func() { _ = tx.Rollback() }()

	t, err := s.tokenRepository.WithTx(tx).Consume(token, model.TokenTypePasswordReset)
	if err != nil {
		return ErrTokenInvalid
	}

	userRepo := s.userRepository.WithTx(tx)
	user, err := userRepo.ByEmail(t.Email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	user.PasswordHash = &hash
	err = userRepo.Update(user)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	// Rotating the credential revokes all standing sessions.
	revoked, err := s.sessionRepository.WithTx(tx).DeactivateAllByUser(user.ID, "")
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit password reset: %w", err)
	}

	slog.Info("password reset completed", "user_id", user.ID, "sessions_revoked", revoked)
	return nil
}

// VerifyEmail consumes an email-verification token and marks the account
// verified.
func (s *AuthService) VerifyEmail(token string) (*model.User, error) {
	t, err := s.tokenRepository.Consume(token, model.TokenTypeEmailVerify)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.userRepository.ByEmail(t.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsVerified {
		user.IsVerified = true
		err = s.userRepository.Update(user)
		if err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
	}

	slog.Info("email verified", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ResendVerification issues a fresh verification token for the current
// user, superseding any previous one.
func (s *AuthService) ResendVerification(user *model.User) (*LinkResult, error) {
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}
	return s.sendVerification(user)
}

func (s *AuthService) sendVerification(user *model.User) (*LinkResult, error) {
	token, err := s.tokenRepository.Issue(user.Email, model.TokenTypeEmailVerify, s.emailVerifyExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	url := fmt.Sprintf("%s/auth/verify-email?token=%s", s.frontendURL, token)

	name := ""
	if user.FirstName != nil {
		name = *user.FirstName
	}

	sent, err := s.emailService.SendVerification(user.Email, url, name)
	if err != nil {
		return nil, err
	}

	return &LinkResult{URL: url, Sent: sent}, nil
}

// AuthenticateOAuth reuses an existing account matched by email or
// provisions a new one from the normalized provider profile.
func (s *AuthService) AuthenticateOAuth(profile *OAuthProfile, provider, device, ip string) (*AuthResult, error) {
	if profile == nil || profile.Email == "" {
		return nil, ErrOAuthEmailMissing
	}

	email := strings.TrimSpace(strings.ToLower(profile.Email))
	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}

		user = &model.User{
			ID:           uuid.New().String(),
			Email:        email,
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			IsActive:     true,
			IsVerified:   true, // OAuth provider has verified the email
			Role:         model.RoleUser,
			AuthProvider: provider,
			ProviderID:   profile.ProviderID,
			AvatarURL:    profile.AvatarURL,
			CreatedAt:    time.Now(),
		}
		err = s.userRepository.Create(user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new oauth user created", "user_id", user.ID, "email", email, "provider", provider)
		return s.issueTokens(user, device, ip)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if !user.IsVerified {
		user.IsVerified = true
		err = s.userRepository.Update(user)
		if err != nil {
			slog.Warn("failed to mark email verified", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via oauth", "user_id", user.ID, "email", email, "provider", provider)
	return s.issueTokens(user, device, ip)
}

// issueTokens opens a session and mints the signed bearer token embedding
// the session's identifier as the "sid" claim.
func (s *AuthService) issueTokens(user *model.User, device, ip string) (*AuthResult, error) {
	session, err := s.sessionRepository.Create(user.ID, device, ip, s.sessionExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     user.Email,
		"user_id": user.ID,
		"sid":     session.TokenID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.jwtExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResult{
		AccessToken: signed,
		TokenType:   "bearer",
		User:        user.View(),
	}, nil
}

// VerifyJWT validates a bearer token's signature and expiry and returns its
// claims.
func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Sessions lists the user's live sessions, most recently used first, with
// the current one flagged.
func (s *AuthService) Sessions(userID, currentTokenID string) ([]model.SessionView, error) {
	sessions, err := s.sessionRepository.ActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]model.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, sessions[i].View(currentTokenID))
	}
	return views, nil
}

// RevokeSession closes one of the user's sessions by id. Revoking an
// already-closed session reports false, never an error.
func (s *AuthService) RevokeSession(userID, sessionID string) (bool, error) {
	return s.sessionRepository.DeactivateByID(userID, sessionID)
}

// Logout closes the session behind the presented bearer token.
func (s *AuthService) Logout(tokenID string) error {
	_, err := s.sessionRepository.Deactivate(tokenID)
	return err
}

// RevokeAllSessions closes every session for the user except the one
// issuing the request, keeping the caller logged in.
func (s *AuthService) RevokeAllSessions(userID, exceptTokenID string) (int64, error) {
	return s.sessionRepository.DeactivateAllByUser(userID, exceptTokenID)
}

// SessionByTokenID resolves the session backing a verified "sid" claim.
func (s *AuthService) SessionByTokenID(tokenID string) (*model.Session, error) {
	return s.sessionRepository.ByTokenID(tokenID)
}

// TouchSession records bearer-token use for the session listing's
// last-used ordering.
func (s *AuthService) TouchSession(tokenID string) {
	err := s.sessionRepository.Touch(tokenID)
	if err != nil {
		slog.Warn("failed to touch session", "error", err, "token_id", tokenID)
	}
}

// SweepTokens deletes used and long-expired tokens. Meant for cmd/sweep.
func (s *AuthService) SweepTokens(olderThan time.Duration) (int64, error) {
	return s.tokenRepository.DeleteExpired(olderThan)
}
