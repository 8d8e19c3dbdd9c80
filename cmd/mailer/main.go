// Command mailer consumes portal notifications from RabbitMQ and delivers
// them over SMTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/bootstrap"
	"github.com/baechuer/member-portal/internal/logger"
)

type builder func() (bootstrap.Worker, func(), error)

// Run starts the worker and stops it on the first signal. It returns the
// process exit code.
func Run(build builder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	w, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lg.Info().Msg("mailer starting")
	if err := w.Start(ctx); err != nil {
		lg.Error().Err(err).Msg("mailer failed to start")
		return 1
	}

	sig := <-sigCh
	lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()

	if err := w.Stop(stopCtx); err != nil {
		lg.Error().Err(err).Msg("graceful stop failed")
		return 1
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(bootstrap.NewMailer, sigCh, logger.Component("mailer")))
}
