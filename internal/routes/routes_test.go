package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halcyonlabs/authbase/internal/app"
	"github.com/halcyonlabs/authbase/internal/config"
	"github.com/halcyonlabs/authbase/internal/db"
	"github.com/halcyonlabs/authbase/internal/repository"
	"github.com/halcyonlabs/authbase/internal/service"
)

func testServer(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()

	cfg := &config.Config{
		AppName:     "Authbase",
		AppEnv:      "development",
		AppURL:      "http://localhost:8000",
		FrontendURL: "http://localhost:3000",
		JWTSecret:   "test-secret-not-for-production",
		JWTExpiry:   30 * time.Minute,

		SessionExpiry:            time.Hour,
		TokenMagicLinkExpiry:     15 * time.Minute,
		TokenPasswordResetExpiry: 30 * time.Minute,
		TokenEmailVerifyExpiry:   24 * time.Hour,

		RateLimitLoginAttempts:         5,
		RateLimitLoginWindow:           15 * time.Minute,
		RateLimitMagicLinkAttempts:     3,
		RateLimitMagicLinkWindow:       15 * time.Minute,
		RateLimitPasswordResetAttempts: 3,
		RateLimitPasswordResetWindow:   time.Hour,
		RateLimitRetention:             24 * time.Hour,

		CORSOrigins: []string{"http://localhost:3000"},
	}

	database, err := db.Init("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	rateLimitRepository := repository.NewRateLimitRepository(database)

	emailService := service.NewEmailService("", "test@example.com", cfg.AppName, true)
	rateLimitService := service.NewRateLimitService(rateLimitRepository)
	oauthService := service.NewOAuthService(cfg.AppURL, "", "", "", "")
	authService := service.NewAuthService(
		database,
		userRepository,
		tokenRepository,
		sessionRepository,
		rateLimitService,
		emailService,
		cfg.FrontendURL,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.SessionExpiry,
		cfg.TokenMagicLinkExpiry,
		cfg.TokenPasswordResetExpiry,
		cfg.TokenEmailVerifyExpiry,
	)
	userService := service.NewUserService(userRepository)

	a := &app.App{
		Cfg:              cfg,
		DB:               database,
		AuthService:      authService,
		UserService:      userService,
		OAuthService:     oauthService,
		EmailService:     emailService,
		RateLimitService: rateLimitService,
	}

	server := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(server.Close)
	return server, a
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	err := json.NewDecoder(resp.Body).Decode(dest)
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func register(t *testing.T, server *httptest.Server, email, password string) authResponse {
	t.Helper()

	resp := postJSON(t, server.URL+"/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}

	var result authResponse
	decode(t, resp, &result)
	return result
}

func TestRegisterLoginMe(t *testing.T) {
	server, _ := testServer(t)

	reg := register(t, server, "alice@example.com", "hunter2secure")
	if reg.TokenType != "bearer" {
		t.Errorf("expected bearer token type, got %s", reg.TokenType)
	}

	resp := getJSON(t, server.URL+"/api/auth/me", reg.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me returned %d", resp.StatusCode)
	}
	var me struct {
		Email string `json:"email"`
	}
	decode(t, resp, &me)
	if me.Email != "alice@example.com" {
		t.Errorf("expected alice@example.com, got %s", me.Email)
	}
}

func TestMeWithoutTokenIs401(t *testing.T) {
	server, _ := testServer(t)

	resp := getJSON(t, server.URL+"/api/auth/me", "")
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginBadPasswordDetailShape(t *testing.T) {
	server, _ := testServer(t)
	register(t, server, "alice@example.com", "hunter2secure")

	resp := postJSON(t, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, resp, &body)
	if body.Detail != "Incorrect email or password" {
		t.Errorf("unexpected detail %q", body.Detail)
	}
}

func TestLoginRateLimit(t *testing.T) {
	server, _ := testServer(t)
	register(t, server, "alice@example.com", "hunter2secure")

	// Budget is 5 per 15 minutes per IP
	for i := 0; i < 5; i++ {
		resp := postJSON(t, server.URL+"/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrongpassword",
		})
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}

	resp := postJSON(t, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}

	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, resp, &body)
	want := "Too many login requests. Please try again in 15 minutes."
	if body.Detail != want {
		t.Errorf("detail = %q, want %q", body.Detail, want)
	}
}

func TestSessionsListAndRevokeAll(t *testing.T) {
	server, _ := testServer(t)

	reg := register(t, server, "alice@example.com", "hunter2secure")

	// Open a second session via login
	resp := postJSON(t, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2secure",
	})
	var second authResponse
	decode(t, resp, &second)

	resp = getJSON(t, server.URL+"/api/auth/sessions", reg.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions returned %d", resp.StatusCode)
	}
	var sessions []struct {
		ID        string `json:"id"`
		IsCurrent bool   `json:"is_current"`
	}
	decode(t, resp, &sessions)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	currentCount := 0
	for _, s := range sessions {
		if s.IsCurrent {
			currentCount++
		}
	}
	if currentCount != 1 {
		t.Errorf("expected exactly one current session, got %d", currentCount)
	}

	// Revoke everything else from the first session
	resp = postJSON(t, server.URL+"/api/auth/sessions/revoke-all", reg.AccessToken, map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke-all returned %d", resp.StatusCode)
	}
	var revoke struct {
		Revoked int `json:"revoked"`
	}
	decode(t, resp, &revoke)
	if revoke.Revoked != 1 {
		t.Errorf("expected 1 revoked session, got %d", revoke.Revoked)
	}

	// The second session's still-valid JWT must now be refused
	resp = getJSON(t, server.URL+"/api/auth/me", second.AccessToken)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected revoked session to get 401, got %d", resp.StatusCode)
	}

	// The current session still works
	resp = getJSON(t, server.URL+"/api/auth/me", reg.AccessToken)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected current session to survive, got %d", resp.StatusCode)
	}
}

func TestRevokeSingleSession(t *testing.T) {
	server, _ := testServer(t)

	reg := register(t, server, "alice@example.com", "hunter2secure")

	resp := getJSON(t, server.URL+"/api/auth/sessions", reg.AccessToken)
	var sessions []struct {
		ID string `json:"id"`
	}
	decode(t, resp, &sessions)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/auth/sessions/%s", server.URL, sessions[0].ID), nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+reg.AccessToken)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete session returned %d", delResp.StatusCode)
	}

	// Revoking the current session locks the bearer token out
	resp = getJSON(t, server.URL+"/api/auth/me", reg.AccessToken)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after revoking own session, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	server, _ := testServer(t)

	reg := register(t, server, "alice@example.com", "hunter2secure")

	resp := postJSON(t, server.URL+"/api/auth/logout", reg.AccessToken, map[string]string{})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout returned %d", resp.StatusCode)
	}

	resp = getJSON(t, server.URL+"/api/auth/me", reg.AccessToken)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestMagicLinkEndToEnd(t *testing.T) {
	server, _ := testServer(t)

	resp := postJSON(t, server.URL+"/api/auth/magic-link/request", "", map[string]string{
		"email": "newcomer@example.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("magic link request returned %d", resp.StatusCode)
	}
	var body struct {
		MagicLink string `json:"magic_link"`
	}
	decode(t, resp, &body)
	if body.MagicLink == "" {
		t.Fatal("expected dev-mode magic link in response")
	}

	_, token, found := strings.Cut(body.MagicLink, "token=")
	if !found {
		t.Fatalf("no token in link %q", body.MagicLink)
	}

	resp = postJSON(t, server.URL+"/api/auth/magic-link/verify", "", map[string]string{
		"token": token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("magic link verify returned %d", resp.StatusCode)
	}
	var result authResponse
	decode(t, resp, &result)
	if result.User.Email != "newcomer@example.com" {
		t.Errorf("expected provisioned user, got %s", result.User.Email)
	}
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	server, a := testServer(t)

	reg := register(t, server, "alice@example.com", "hunter2secure")

	resp := getJSON(t, server.URL+"/api/users", reg.AccessToken)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	// Promote and retry
	_, err := a.DB.Exec(`UPDATE users SET role = 'admin' WHERE id = $1`, reg.User.ID)
	if err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}

	resp = getJSON(t, server.URL+"/api/users", reg.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	var users []struct {
		Email string `json:"email"`
	}
	decode(t, resp, &users)
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestOAuthUnconfiguredIs501(t *testing.T) {
	server, _ := testServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/api/auth/google")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("expected 501 for unconfigured provider, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	server, _ := testServer(t)

	resp := getJSON(t, server.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	decode(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %s", body.Status)
	}
}
