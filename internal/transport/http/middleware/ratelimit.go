package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/infrastructure/redis"
	"github.com/baechuer/member-portal/internal/logger"
	pkgctx "github.com/baechuer/member-portal/internal/pkg/context"
)

// RateLimiter is the shared (redis) fixed-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (redis.Decision, error)
}

// RateLimitConfig defines one fixed-window limit.
type RateLimitConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit enforces cfg per user (when authenticated) or per client IP.
// With a nil limiter it falls back to an in-process limiter, which is only
// accurate for a single API instance.
func RateLimit(limiter RateLimiter, cfg RateLimitConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = "default"
	}
	if cfg.Limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	if limiter == nil {
		return httprate.Limit(cfg.Limit, cfg.Window,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return cfg.Scope + ":" + userOrIP(r), nil
			}),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeErr(w, r, domain.ErrRateLimited(cfg.Scope))
			}),
		)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := limiter.Allow(r.Context(), cfg.Scope, userOrIP(r), cfg.Limit, cfg.Window)
			if err != nil {
				// fail open
				logger.WithCtx(r.Context()).Warn().Err(err).Str("scope", cfg.Scope).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					secs := int((dec.RetryAfter + time.Second - 1) / time.Second)
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				writeErr(w, r, domain.ErrRateLimited(cfg.Scope))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// userOrIP prefers the session user if present; otherwise the client IP.
func userOrIP(r *http.Request) string {
	if uid, ok := UserIDFromContext(r.Context()); ok {
		return "u:" + uid
	}
	if ip := pkgctx.GetClientIP(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + remoteHost(r)
}
