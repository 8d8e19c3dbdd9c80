package bootstrap

import (
	"context"
	"fmt"

	"github.com/baechuer/member-portal/internal/config"
	"github.com/baechuer/member-portal/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/member-portal/internal/logger"
)

// Worker is a long-running background process.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NewMailer wires the notification queue consumer to the SMTP sender.
func NewMailer() (Worker, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return NewMailerFromConfig(cfg)
}

func NewMailerFromConfig(cfg *config.Config) (Worker, func(), error) {
	if cfg.RabbitURL == "" {
		return nil, nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}
	if cfg.SMTPHost == "" || cfg.EmailFrom == "" {
		return nil, nil, fmt.Errorf("mailer requires SMTP_HOST and EMAIL_FROM")
	}

	sender, err := NewSMTPSender(cfg)
	if err != nil {
		return nil, nil, err
	}

	c := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.RabbitExchange,
		Queue:    cfg.RabbitQueue,
		Tag:      "member-portal-mailer",
	}, sender, logger.Logger)

	logger.Logger.Info().
		Str("exchange", cfg.RabbitExchange).
		Str("queue", cfg.RabbitQueue).
		Str("smtp_host", cfg.SMTPHost).
		Msg("mailer configured")

	return c, func() {}, nil
}
