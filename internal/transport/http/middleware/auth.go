package middleware

import (
	"net/http"
	"strings"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
	"github.com/baechuer/otp-auth/internal/logger"
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// SessionGate resolves the session token to a user id and injects it into the
// request context. Any failure is reported as unauthenticated.
func SessionGate(verifier TokenVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := sessionToken(r)
			if raw == "" {
				writeErr(w, r, domain.ErrUnauthenticated())
				return
			}

			userID, err := verifier.Verify(raw)
			if err != nil || strings.TrimSpace(userID) == "" {
				logger.WithCtx(r.Context()).Debug().Err(err).Msg("session_rejected")
				writeErr(w, r, domain.ErrUnauthenticated())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// sessionToken prefers the session cookie and falls back to a bearer header.
func sessionToken(r *http.Request) string {
	if tok, err := security.ReadSessionCookie(r); err == nil {
		return strings.TrimSpace(tok)
	}

	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OptionalSession injects the user id when a valid session is presented and
// never rejects the request.
func OptionalSession(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := sessionToken(r); raw != "" {
				if userID, err := verifier.Verify(raw); err == nil && strings.TrimSpace(userID) != "" {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
