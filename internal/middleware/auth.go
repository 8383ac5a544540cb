package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/halcyonlabs/authbase/internal/ctxkeys"
	"github.com/halcyonlabs/authbase/internal/service"
)

// AuthMiddleware validates the bearer token and adds the user and session id
// to the request context. The "sid" claim is cross-checked against the
// session store so a revoked session fails even while its signature is
// still valid.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				// No credentials, continue without auth
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.VerifyJWT(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			email, ok := claims["sub"].(string)
			if !ok || email == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByEmail(email)
			if err != nil || !user.IsActive {
				next.ServeHTTP(w, r)
				return
			}

			sid, ok := claims["sid"].(string)
			if !ok || sid == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := authService.SessionByTokenID(sid)
			if err != nil || !session.IsLive() {
				// Revoked or expired session
				next.ServeHTTP(w, r)
				return
			}

			authService.TouchSession(sid)

			// Security: Remove password hash from context
			user.PasswordHash = nil

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithSessionID(ctx, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects unauthenticated requests with a JSON 401
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			deny(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireAdmin rejects requests from non-admin users
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if !user.IsAdmin() {
			deny(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
