package middleware

import (
	"net/http"

	"github.com/baechuer/member-portal/internal/domain"
)

// RequireAdmin must run after Auth. A request without a profile in context
// is treated as unauthenticated rather than forbidden.
func RequireAdmin(writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch p, ok := ProfileFromContext(r.Context()); {
			case !ok:
				writeErr(w, r, domain.ErrTokenMissing())
			case !p.User.IsAdmin:
				writeErr(w, r, domain.ErrAdminRequired())
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
