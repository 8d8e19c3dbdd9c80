package middleware

import (
	"context"

	"github.com/baechuer/member-portal/internal/domain"
)

type ctxKey string

const ctxProfile ctxKey = "profile"

func WithProfile(ctx context.Context, p domain.Profile) context.Context {
	return context.WithValue(ctx, ctxProfile, p)
}

// ProfileFromContext returns the authenticated user's profile, if any.
func ProfileFromContext(ctx context.Context) (domain.Profile, bool) {
	p, ok := ctx.Value(ctxProfile).(domain.Profile)
	return p, ok && p.User.ID != ""
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := ProfileFromContext(ctx)
	return p.User.ID, ok
}
