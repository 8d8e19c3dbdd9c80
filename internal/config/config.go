package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierSMTP     = "smtp"
	NotifierRabbitMQ = "rabbitmq"
	NotifierLog      = "log"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr    string
	CORSOrigins []string

	// Portal identity
	AdminEmail  string
	BackendURL  string
	FrontendURL string

	//Auth / Security
	JWTSecret             string
	JWTIssuer             string
	SessionTokenTTL       time.Duration
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
	BcryptCost            int

	// Storage
	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DBAddr        string
	DBDebug       bool
	DBPool        PostgresPool

	// Notifications
	Notifier     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration
	SMTPInsecure bool
	EmailFrom    string

	RabbitURL      string
	RabbitExchange string
	RabbitQueue    string

	// Rate limiting (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TrustedProxyHops is how many reverse proxies front the API; their
	// X-Forwarded-For entries decide the client IP. 0 ignores the header.
	TrustedProxyHops int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":5000"),
		JWTIssuer:      getEnv("JWT_ISSUER", "member-portal"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoDatabase:  getEnv("MONGO_DATABASE", "portal"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "portal.notifications"),
		RabbitQueue:    getEnv("RABBIT_QUEUE", "portal.mailer"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		EmailFrom:      os.Getenv("EMAIL_FROM"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		DBAddr:         os.Getenv("DB_ADDR"),
	}

	// required values
	for _, req := range []struct {
		key string
		dst *string
	}{
		{"JWT_SECRET", &cfg.JWTSecret},
		{"ADMIN_EMAIL", &cfg.AdminEmail},
		{"BACKEND_URL", &cfg.BackendURL},
		{"FRONTEND_URL", &cfg.FrontendURL},
	} {
		*req.dst = strings.TrimSpace(os.Getenv(req.key))
		if *req.dst == "" {
			return nil, fmt.Errorf("missing required env var: %s", req.key)
		}
	}
	cfg.AdminEmail = strings.ToLower(cfg.AdminEmail)
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("missing required env var: MONGO_URI")
		}
	case StorePostgres:
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (want mongo|postgres|memory)", cfg.StoreDriver)
	}

	// Must include `token=` because the service appends the token.
	cfg.PasswordResetBaseURL = getEnv("PASSWORD_RESET_BASE_URL", cfg.FrontendURL+"/reset-password?token=")
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}

	defNotifier := NotifierSMTP
	if cfg.Env == "dev" {
		defNotifier = NotifierLog
	}
	cfg.Notifier = strings.ToLower(getEnv("NOTIFIER", defNotifier))
	switch cfg.Notifier {
	case NotifierSMTP:
		if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
			return nil, fmt.Errorf("NOTIFIER=smtp requires SMTP_HOST and EMAIL_FROM")
		}
	case NotifierRabbitMQ:
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	case NotifierLog:
	default:
		return nil, fmt.Errorf("invalid NOTIFIER %q (want smtp|rabbitmq|log)", cfg.Notifier)
	}

	var err error
	if cfg.SessionTokenTTL, err = getDuration("SESSION_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTokenTTL, err = getDuration("PASSWORD_RESET_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SMTPTimeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TrustedProxyHops, err = getInt("TRUSTED_PROXY_HOPS", 0); err != nil {
		return nil, err
	}
	if cfg.TrustedProxyHops < 0 {
		return nil, fmt.Errorf("invalid TRUSTED_PROXY_HOPS %d: must not be negative", cfg.TrustedProxyHops)
	}
	if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBPool.MaxOpen, err = getInt("DB_MAX_OPEN_CONNS", DefaultPostgresPool.MaxOpen); err != nil {
		return nil, err
	}
	if cfg.DBPool.MaxIdle, err = getInt("DB_MAX_IDLE_CONNS", DefaultPostgresPool.MaxIdle); err != nil {
		return nil, err
	}
	if cfg.DBPool.MaxIdleTime, err = getDuration("DB_CONN_MAX_IDLE_TIME", DefaultPostgresPool.MaxIdleTime); err != nil {
		return nil, err
	}
	if cfg.DBPool.MaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", DefaultPostgresPool.MaxLifetime); err != nil {
		return nil, err
	}

	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", cfg.FrontendURL))
	return cfg, nil
}

// IsDev reports the local development environment.
func (c *Config) IsDev() bool { return c.Env == "dev" }

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q: must be positive", key, v)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
