package routes

import (
	"net/http"

	"github.com/halcyonlabs/authbase/internal/app"
	"github.com/halcyonlabs/authbase/internal/handler"
	"github.com/halcyonlabs/authbase/internal/middleware"
	"github.com/halcyonlabs/authbase/internal/service"
)

func SetupRoutes(a *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(a.AuthService, a.OAuthService, a.Cfg)
	users := handler.NewUserHandler(a.UserService)
	health := handler.NewHealthHandler(a.DB)

	// Per-endpoint rate limiters (persisted, per client IP)
	limitLogin := middleware.RateLimit(a.RateLimitService, middleware.RateLimitConfig{
		Endpoint:    service.RateLimitEndpointLogin,
		Action:      "login",
		MaxAttempts: a.Cfg.RateLimitLoginAttempts,
		Window:      a.Cfg.RateLimitLoginWindow,
	})
	limitMagicLink := middleware.RateLimit(a.RateLimitService, middleware.RateLimitConfig{
		Endpoint:    service.RateLimitEndpointMagicLink,
		Action:      "magic link",
		MaxAttempts: a.Cfg.RateLimitMagicLinkAttempts,
		Window:      a.Cfg.RateLimitMagicLinkWindow,
	})
	limitPasswordReset := middleware.RateLimit(a.RateLimitService, middleware.RateLimitConfig{
		Endpoint:    service.RateLimitEndpointPasswordReset,
		Action:      "password reset",
		MaxAttempts: a.Cfg.RateLimitPasswordResetAttempts,
		Window:      a.Cfg.RateLimitPasswordResetWindow,
	})

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", health.Health)

	// Registration & password login
	mux.HandleFunc("POST /api/auth/register", auth.Register)
	mux.HandleFunc("POST /api/auth/login", limitLogin(auth.Login))

	// Magic link
	mux.HandleFunc("POST /api/auth/magic-link/request", limitMagicLink(auth.RequestMagicLink))
	mux.HandleFunc("POST /api/auth/magic-link/verify", auth.VerifyMagicLink)

	// Password reset (request / verify link / confirm)
	mux.HandleFunc("POST /api/auth/password-reset/request", limitPasswordReset(auth.RequestPasswordReset))
	mux.HandleFunc("POST /api/auth/password-reset/verify", auth.VerifyPasswordResetToken)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", auth.ConfirmPasswordReset)

	// Email verification
	mux.HandleFunc("POST /api/auth/verify-email", auth.VerifyEmail)
	mux.HandleFunc("POST /api/auth/resend-verification", middleware.RequireAuth(auth.ResendVerification))

	// OAuth
	mux.HandleFunc("GET /api/auth/google", auth.OAuthStart("google"))
	mux.HandleFunc("GET /api/auth/google/callback", auth.OAuthCallback("google"))
	mux.HandleFunc("GET /api/auth/linkedin", auth.OAuthStart("linkedin"))
	mux.HandleFunc("GET /api/auth/linkedin/callback", auth.OAuthCallback("linkedin"))

	// Current identity & sessions
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(auth.Me))
	mux.HandleFunc("POST /api/auth/logout", middleware.RequireAuth(auth.Logout))
	mux.HandleFunc("GET /api/auth/sessions", middleware.RequireAuth(auth.Sessions))
	mux.HandleFunc("DELETE /api/auth/sessions/{id}", middleware.RequireAuth(auth.RevokeSession))
	mux.HandleFunc("POST /api/auth/sessions/revoke-all", middleware.RequireAuth(auth.RevokeAllSessions))

	// Profile
	mux.HandleFunc("GET /api/users/profile", middleware.RequireAuth(users.Profile))
	mux.HandleFunc("PUT /api/users/profile", middleware.RequireAuth(users.UpdateProfile))

	// Admin user management
	mux.HandleFunc("GET /api/users", middleware.RequireAdmin(users.List))
	mux.HandleFunc("GET /api/users/{id}", middleware.RequireAdmin(users.Get))
	mux.HandleFunc("PUT /api/users/{id}", middleware.RequireAdmin(users.Update))
	mux.HandleFunc("DELETE /api/users/{id}", middleware.RequireAdmin(users.Delete))

	// Middleware chain (executes top to bottom)
	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.CORS(a.Cfg.CORSOrigins),
		middleware.AuthMiddleware(a.AuthService, a.UserService),
	)
}
