package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/halcyonlabs/authbase/internal/config"
	"github.com/halcyonlabs/authbase/internal/ctxkeys"
	"github.com/halcyonlabs/authbase/internal/middleware"
	"github.com/halcyonlabs/authbase/internal/service"
	"github.com/halcyonlabs/authbase/internal/validation"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService  *service.AuthService
	oauthService *service.OAuthService
	cfg          *config.Config
}

func NewAuthHandler(authService *service.AuthService, oauthService *service.OAuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		oauthService: oauthService,
		cfg:          cfg,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Register(req.Email, req.Password, req.FirstName, req.LastName, deviceInfo(r), middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			respondError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "Invalid email address")
		case errors.Is(err, validation.ErrPasswordTooShort), errors.Is(err, validation.ErrPasswordTooLong):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("registration failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(req.Email, req.Password, deviceInfo(r), middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Incorrect email or password")
		case errors.Is(err, service.ErrAccountInactive):
			respondError(w, http.StatusBadRequest, "Inactive user")
		default:
			slog.Error("login failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RequestMagicLink always answers 200 with a generic message so the
// response never reveals whether the email has an account.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.RequestMagicLink(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		slog.Error("magic link request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to send magic link")
		return
	}

	resp := map[string]string{"message": "If the email exists, a magic link has been sent."}
	if !result.Sent && h.cfg.IsDevelopment() {
		// Dev convenience: mailer is off, surface the link
		resp["magic_link"] = result.URL
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.VerifyMagicLink(req.Token, deviceInfo(r), middleware.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			respondError(w, http.StatusBadRequest, "Invalid or expired magic link")
		case errors.Is(err, service.ErrAccountInactive):
			respondError(w, http.StatusBadRequest, "Inactive user")
		default:
			slog.Error("magic link verification failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.RequestPasswordReset(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		slog.Error("password reset request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to request password reset")
		return
	}

	resp := map[string]string{"message": "If the email exists, a reset link has been sent."}
	if result.URL != "" && !result.Sent && h.cfg.IsDevelopment() {
		resp["reset_link"] = result.URL
	}
	respondJSON(w, http.StatusOK, resp)
}

// VerifyPasswordResetToken checks the link before the frontend shows the
// new-password form. The token stays valid for the confirm step.
func (h *AuthHandler) VerifyPasswordResetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	email, err := h.authService.VerifyPasswordResetToken(req.Token)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"valid": true, "email": email})
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.ConfirmPasswordReset(req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			respondError(w, http.StatusBadRequest, "Invalid or expired reset token")
		case errors.Is(err, validation.ErrPasswordTooShort), errors.Is(err, validation.ErrPasswordTooLong):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("password reset failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Password reset failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset. Please log in again."})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.VerifyEmail(req.Token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			respondError(w, http.StatusBadRequest, "Invalid or expired verification token")
			return
		}
		slog.Error("email verification failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Verification failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Email verified", "user": user.View()})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	result, err := h.authService.ResendVerification(user)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyVerified) {
			respondError(w, http.StatusBadRequest, "Email already verified")
			return
		}
		slog.Error("failed to resend verification", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	resp := map[string]string{"message": "Verification email sent."}
	if !result.Sent && h.cfg.IsDevelopment() {
		resp["verification_link"] = result.URL
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respondJSON(w, http.StatusOK, user.View())
}

// Logout revokes the session behind the presented bearer token. The token
// itself stays cryptographically valid until expiry; the middleware's
// session check is what locks it out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := ctxkeys.SessionID(r.Context())
	if sid != "" {
		err := h.authService.Logout(sid)
		if err != nil {
			slog.Warn("logout failed to revoke session", "error", err, "token_id", sid)
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	sid := ctxkeys.SessionID(r.Context())

	sessions, err := h.authService.Sessions(user.ID, sid)
	if err != nil {
		slog.Error("failed to list sessions", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, sessions)
}

func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	sessionID := r.PathValue("id")

	revoked, err := h.authService.RevokeSession(user.ID, sessionID)
	if err != nil {
		slog.Error("failed to revoke session", "error", err, "user_id", user.ID, "session_id", sessionID)
		respondError(w, http.StatusInternalServerError, "Failed to revoke session")
		return
	}
	if !revoked {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Session revoked"})
}

// RevokeAllSessions logs the user out everywhere else. The current session
// is kept so the caller doesn't revoke the credential they are using.
func (h *AuthHandler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	sid := ctxkeys.SessionID(r.Context())

	count, err := h.authService.RevokeAllSessions(user.ID, sid)
	if err != nil {
		slog.Error("failed to revoke sessions", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "Failed to revoke sessions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "Sessions revoked", "revoked": count})
}

// OAuthStart redirects to the provider consent screen with a fresh CSRF
// state bound to a short-lived cookie.
func (h *AuthHandler) OAuthStart(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := randomState()
		if err != nil {
			slog.Error("failed to generate oauth state", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to start authentication")
			return
		}

		authURL, err := h.oauthService.AuthURL(provider, state)
		if err != nil {
			h.respondOAuthError(w, provider, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/api/auth",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   h.cfg.IsProduction(),
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// OAuthCallback finishes the provider flow and hands the bearer token to
// the frontend via redirect.
func (h *AuthHandler) OAuthCallback(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			slog.Warn("oauth provider returned error", "provider", provider, "error", errParam)
			h.redirectWithError(w, r, "Authentication was cancelled")
			return
		}

		state := r.URL.Query().Get("state")
		cookie, err := r.Cookie(oauthStateCookie)
		if err != nil || state == "" || cookie.Value != state {
			h.redirectWithError(w, r, "Invalid authentication state")
			return
		}

		// State is single-use
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    "",
			Path:     "/api/auth",
			MaxAge:   -1,
			HttpOnly: true,
		})

		code := r.URL.Query().Get("code")
		if code == "" {
			h.redirectWithError(w, r, "Missing authorization code")
			return
		}

		profile, err := h.oauthService.Profile(r.Context(), provider, code)
		if err != nil {
			slog.Error("oauth profile fetch failed", "error", err, "provider", provider)
			h.redirectWithError(w, r, "Authentication failed")
			return
		}

		result, err := h.authService.AuthenticateOAuth(profile, provider, deviceInfo(r), middleware.ClientIP(r))
		if err != nil {
			slog.Error("oauth authentication failed", "error", err, "provider", provider)
			h.redirectWithError(w, r, "Authentication failed")
			return
		}

		redirect := fmt.Sprintf("%s/auth/callback?token=%s", h.cfg.FrontendURL, url.QueryEscape(result.AccessToken))
		http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
	}
}

func (h *AuthHandler) respondOAuthError(w http.ResponseWriter, provider string, err error) {
	switch {
	case errors.Is(err, service.ErrProviderNotConfigured):
		respondError(w, http.StatusNotImplemented, fmt.Sprintf("%s login is not configured", provider))
	case errors.Is(err, service.ErrUnknownProvider):
		respondError(w, http.StatusBadRequest, "Unknown provider")
	default:
		slog.Error("oauth start failed", "error", err, "provider", provider)
		respondError(w, http.StatusInternalServerError, "Failed to start authentication")
	}
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	redirect := fmt.Sprintf("%s/auth/callback?error=%s", h.cfg.FrontendURL, url.QueryEscape(message))
	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

func randomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func deviceInfo(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > 255 {
		ua = ua[:255]
	}
	return ua
}
