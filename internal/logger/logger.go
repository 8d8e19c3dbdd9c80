package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	reqctx "github.com/baechuer/member-portal/internal/pkg/context"
)

const serviceName = "member-portal"

var Logger zerolog.Logger

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter configures the package logger from LOG_LEVEL, LOG_FORMAT
// (json|console) and LOG_CALLER, and mirrors it into zerolog's global.
func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if strings.ToLower(os.Getenv("LOG_FORMAT")) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp().Str("service", serviceName)
	if os.Getenv("LOG_CALLER") == "true" {
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger().Level(level)

	zlog.Logger = Logger
}

// WithCtx returns the package logger enriched with the request id carried by ctx.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid := reqctx.GetRequestID(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return &l
}

// Component tags log lines with the subsystem that produced them.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
