package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/member-portal/internal/application/admin"
	"github.com/baechuer/member-portal/internal/application/auth"
	"github.com/baechuer/member-portal/internal/application/verification"
	"github.com/baechuer/member-portal/internal/audit"
	"github.com/baechuer/member-portal/internal/config"
	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/infrastructure/db/mongodb"
	"github.com/baechuer/member-portal/internal/infrastructure/db/postgres"
	"github.com/baechuer/member-portal/internal/infrastructure/email"
	"github.com/baechuer/member-portal/internal/infrastructure/memory"
	"github.com/baechuer/member-portal/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/member-portal/internal/infrastructure/notify"
	"github.com/baechuer/member-portal/internal/infrastructure/redis"
	"github.com/baechuer/member-portal/internal/infrastructure/security"
	"github.com/baechuer/member-portal/internal/logger"
	http_handlers "github.com/baechuer/member-portal/internal/transport/http/handlers"
	"github.com/baechuer/member-portal/internal/transport/http/middleware"
	"github.com/baechuer/member-portal/internal/transport/http/response"
	"github.com/baechuer/member-portal/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	OpenStore func(ctx context.Context, cfg *config.Config) (*Store, error)

	NewNotifier func(cfg *config.Config) (notify.Notifier, func(), error)

	// NewRedis is optional; nil or an empty REDIS_ADDR disables the shared limiter.
	NewRedis func(addr, password string, db int) RedisClient

	NewRouter func(router.Deps) (http.Handler, error)

	// Registerer receives business metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

// UserStore is every user operation the services need from one backend.
type UserStore interface {
	verification.UserRepo
	auth.UserRepo
	admin.UserRepo
}

type RepresentativeStore interface {
	GetByID(ctx context.Context, id string) (domain.Representative, error)
	ListActive(ctx context.Context) ([]domain.Representative, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Representative, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, reps []domain.Representative) ([]domain.Representative, error)
}

// Store is an opened persistence backend.
type Store struct {
	Users           UserStore
	Representatives RepresentativeStore
	Health          http_handlers.Pinger
	Close           func()
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// 1) store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := deps.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	var cleanupFns []func()
	if store.Close != nil {
		cleanupFns = append(cleanupFns, store.Close)
	}

	// 2) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// seed (dev, in-memory only)
	if cfg.IsDev() {
		if users, ok := store.Users.(*memory.UserRepo); ok {
			if reps, ok := store.Representatives.(*memory.RepresentativeRepo); ok {
				memory.SeedDev(context.Background(), users, reps, hasher, cfg.AdminEmail)
			}
		}
	}

	// 3) notifier
	n, closeNotifier, err := deps.NewNotifier(cfg)
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}
	if closeNotifier != nil {
		cleanupFns = append(cleanupFns, closeNotifier)
	}
	notifier := notify.Instrument(n, reg)

	// 4) redis (best-effort)
	var limiter middleware.RateLimiter
	var redisPinger http_handlers.Pinger
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, pcancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(pctx)
		pcancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limiting")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			redisPinger = c
			if rc, ok := c.(*redis.Client); ok {
				limiter = redis.NewFixedWindowLimiter(rc)
			}
		}
	}

	// 5) services
	auditLog := audit.New(logger.Logger, reg)

	workflow := verification.NewWorkflow(store.Users, store.Representatives, hasher, notifier, verification.Config{
		AdminEmail:  cfg.AdminEmail,
		BackendURL:  cfg.BackendURL,
		FrontendURL: cfg.FrontendURL,
	}).
		WithLogger(logger.Component("verification")).
		WithAudit(auditLog.Record)

	authSvc := auth.NewService(store.Users, store.Representatives, hasher, signer, notifier, auth.Config{
		SessionTTL:            cfg.SessionTokenTTL,
		AdminEmail:            cfg.AdminEmail,
		PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
		PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
	}).
		WithLogger(logger.Component("auth")).
		WithAudit(auditLog.Record)

	adminSvc := admin.NewService(store.Users, store.Representatives, workflow).
		WithAudit(auditLog.Record)

	// 6) handlers + middleware
	healthDeps := map[string]http_handlers.Pinger{}
	if store.Health != nil {
		healthDeps["store"] = store.Health
	}
	if redisPinger != nil {
		healthDeps["redis"] = redisPinger
	}

	rl := func(scope string, limit int, window time.Duration) router.Middleware {
		return middleware.RateLimit(limiter, middleware.RateLimitConfig{
			Scope:  scope,
			Limit:  limit,
			Window: window,
		}, response.WriteError)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: http_handlers.NewHealthHandler(healthDeps),
		Users:  http_handlers.NewUserHandler(authSvc, workflow),
		Admin:  http_handlers.NewAdminHandler(adminSvc),

		RequestIDMW:    middleware.RequestIDBehindProxies(cfg.TrustedProxyHops),
		AuthMW:         middleware.Auth(authSvc, response.WriteError),
		OptionalAuthMW: middleware.OptionalAuth(authSvc),
		AdminMW:        middleware.RequireAdmin(response.WriteError),

		CORSOrigins: cfg.CORSOrigins,
		Metrics:     promhttp.Handler(),

		RLRegister:       rl("users.register", 5, 10*time.Minute),
		RLLogin:          rl("users.login", 10, time.Minute),
		RLContact:        rl("users.contact", 5, 10*time.Minute),
		RLForgotPassword: rl("users.forgot_password", 3, 10*time.Minute),
		RLResetPassword:  rl("users.reset_password", 5, 10*time.Minute),
		RLAdminVerify:    rl("users.admin_verify", 30, time.Minute),
		RLAdminActions:   rl("admin.actions", 60, time.Minute),
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { runCleanup(cleanupFns) })
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig:  config.Load,
		OpenStore:   OpenStore,
		NewNotifier: NewNotifier,
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

// OpenStore connects the backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		s, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Logger.Info().Str("database", cfg.MongoDatabase).Msg("mongodb connected")
		return &Store{
			Users:           s.Users(),
			Representatives: s.Representatives(),
			Health:          s,
			Close: func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = s.Close(cctx)
			},
		}, nil

	case config.StorePostgres:
		db, err := config.OpenPostgres(ctx, cfg.DBAddr, cfg.DBPool, cfg.DBDebug)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		users := postgres.NewUserRepo(db)
		return &Store{
			Users:           users,
			Representatives: postgres.NewRepresentativeRepo(db),
			Health:          users,
			Close:           func() { _ = db.Close() },
		}, nil

	case config.StoreMemory:
		logger.Logger.Warn().Msg("using in-memory store; data is lost on restart")
		users := memory.NewUserRepo()
		return &Store{
			Users:           users,
			Representatives: memory.NewRepresentativeRepo(),
			Health:          users,
		}, nil
	}
	return nil, fmt.Errorf("bootstrap: unknown store driver %q", cfg.StoreDriver)
}

// NewNotifier builds the notifier selected by NOTIFIER. The returned func
// releases its connections and may be nil.
func NewNotifier(cfg *config.Config) (notify.Notifier, func(), error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		s, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case config.NotifierRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, logger.Logger)
		if err != nil {
			if cfg.IsDev() {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging notifications instead")
				return memory.NewLogNotifier(logger.Component("notifier")), nil, nil
			}
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil

	case config.NotifierLog:
		return memory.NewLogNotifier(logger.Component("notifier")), nil, nil
	}
	return nil, nil, fmt.Errorf("bootstrap: unknown notifier %q", cfg.Notifier)
}

// NewSMTPSender is shared by the API and the mailer worker.
func NewSMTPSender(cfg *config.Config) (*email.SMTPSender, error) {
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		Timeout:  cfg.SMTPTimeout,
		Insecure: cfg.SMTPInsecure,
	}, logger.Logger)
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
