// Command tool runs one-off operator tasks against the configured backends.
//
//	tool make-admin <email>
//	tool seed-representatives
//	tool ratelimits [scope]
//	tool reset-ratelimit <scope> [identity]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/baechuer/member-portal/internal/application/admin"
	"github.com/baechuer/member-portal/internal/audit"
	"github.com/baechuer/member-portal/internal/bootstrap"
	"github.com/baechuer/member-portal/internal/config"
	"github.com/baechuer/member-portal/internal/infrastructure/redis"
	"github.com/baechuer/member-portal/internal/logger"
)

const usage = `usage:
  tool make-admin <email>
  tool seed-representatives
  tool ratelimits [scope]
  tool reset-ratelimit <scope> [identity]`

var errUsage = errors.New("usage")

// opener builds a backend-bound value and the func that releases it.
type opener[T any] func(ctx context.Context) (T, func(), error)

type openers struct {
	admin   opener[*admin.Service]
	limiter opener[*redis.FixedWindowLimiter]
}

func run(ctx context.Context, args []string, out io.Writer, o openers) int {
	cmd, err := parse(args, out)
	if err != nil {
		fmt.Fprintln(out, usage)
		return 2
	}
	if err := cmd(ctx, o); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	return 0
}

type command func(ctx context.Context, o openers) error

func parse(args []string, out io.Writer) (command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	switch name, rest := args[0], args[1:]; {
	case name == "make-admin" && len(rest) == 1:
		return withAdmin(func(ctx context.Context, svc *admin.Service) error {
			u, err := svc.PromoteAdmin(ctx, rest[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s is now an admin\n", u.Email)
			return nil
		}), nil

	case name == "seed-representatives" && len(rest) == 0:
		return withAdmin(func(ctx context.Context, svc *admin.Service) error {
			reps, err := svc.SeedDefaultRepresentatives(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "seeded %d representatives\n", len(reps))
			for _, r := range reps {
				fmt.Fprintf(out, "  %s <%s>\n", r.Name, r.Email)
			}
			return nil
		}), nil

	case name == "ratelimits" && len(rest) <= 1:
		scope := ""
		if len(rest) == 1 {
			scope = rest[0]
		}
		return withLimiter(func(ctx context.Context, l *redis.FixedWindowLimiter) error {
			ws, err := l.Windows(ctx, scope)
			if err != nil {
				return err
			}
			if len(ws) == 0 {
				fmt.Fprintln(out, "no active rate limit windows")
				return nil
			}
			for _, w := range ws {
				fmt.Fprintf(out, "%s %s count=%d ttl=%s\n", w.Scope, w.Identity, w.Count, w.TTL.Round(time.Second))
			}
			return nil
		}), nil

	case name == "reset-ratelimit" && (len(rest) == 1 || len(rest) == 2):
		identity := ""
		if len(rest) == 2 {
			identity = rest[1]
		}
		return withLimiter(func(ctx context.Context, l *redis.FixedWindowLimiter) error {
			n, err := l.Reset(ctx, rest[0], identity)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %d window(s)\n", n)
			return nil
		}), nil
	}
	return nil, errUsage
}

func withAdmin(fn func(ctx context.Context, svc *admin.Service) error) command {
	return func(ctx context.Context, o openers) error {
		svc, closeFn, err := o.admin(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, svc)
	}
}

func withLimiter(fn func(ctx context.Context, l *redis.FixedWindowLimiter) error) command {
	return func(ctx context.Context, o openers) error {
		l, closeFn, err := o.limiter(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, l)
	}
}

func openAdmin(ctx context.Context) (*admin.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if store.Close != nil {
		closeFn = store.Close
	}
	svc := admin.NewService(store.Users, store.Representatives, nil).
		WithAudit(audit.New(logger.Logger, nil).Record)
	return svc, closeFn, nil
}

func openLimiter(ctx context.Context) (*redis.FixedWindowLimiter, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisAddr == "" {
		return nil, nil, errors.New("REDIS_ADDR is not set; rate limits are in-process")
	}
	c := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	return redis.NewFixedWindowLimiter(c), func() { _ = c.Close() }, nil
}

func main() {
	logger.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	code := run(ctx, os.Args[1:], os.Stdout, openers{admin: openAdmin, limiter: openLimiter})
	cancel()
	os.Exit(code)
}
