package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
)

// CORS allows a single browser origin with credentials so the session cookie
// travels on cross-origin requests.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderXRequestID},
		ExposedHeaders:   []string{HeaderXRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// OriginGuard rejects state-changing requests that carry the session cookie
// but come from a host other than the allowed origin. Bearer-only callers
// are not subject to the check.
func OriginGuard(allowedOrigin string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowedHost := ""
	if u, err := url.Parse(allowedOrigin); err == nil {
		allowedHost = strings.ToLower(u.Host)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := security.ReadSessionCookie(r); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			// same-origin requests from non-browser clients send neither header
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := url.Parse(origin)
			if err != nil || strings.ToLower(u.Host) != allowedHost {
				writeErr(w, r, domain.ErrCrossOrigin(origin))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
