package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/logger"
)

// Authenticator resolves a bearer token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Profile, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// bearerToken extracts the token from Authorization: Bearer <token>.
// A missing header is ErrTokenMissing; a malformed one is ErrTokenInvalid.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}

// Auth requires a valid session token and injects the user's profile into
// the request context.
func Auth(authn Authenticator, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			p, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches the profile when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			p, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				logger.WithCtx(r.Context()).Debug().Err(err).Msg("optional auth ignored token")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), p)))
		})
	}
}
