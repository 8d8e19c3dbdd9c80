// Package email renders notifications and delivers them over SMTP.
package email

import (
	"context"
	"errors"
	"net/textproto"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/baechuer/member-portal/internal/domain"
)

var sentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_emails_sent_total",
	Help: "Emails handed to the SMTP server, by kind and result.",
}, []string{"kind", "result"})

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

// deliverFunc sends one built message.
type deliverFunc func(ctx context.Context, m *mail.Msg) error

type SMTPSender struct {
	lg   zerolog.Logger
	cfg  SMTPConfig
	tmpl *renderer

	deliver deliverFunc
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) (*SMTPSender, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &SMTPSender{
		lg:   lg.With().Str("component", "smtp_sender").Logger(),
		cfg:  cfg,
		tmpl: r,
	}
	s.deliver = s.dialAndSend
	return s, nil
}

func (s *SMTPSender) SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error {
	return s.sendRendered(ctx, "admin_review", func() (message, error) { return s.tmpl.reviewRequest(req) })
}

func (s *SMTPSender) SendDecision(ctx context.Context, n domain.DecisionNotice) error {
	return s.sendRendered(ctx, "decision", func() (message, error) { return s.tmpl.decision(n) })
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, n domain.PasswordResetNotice) error {
	return s.sendRendered(ctx, "password_reset", func() (message, error) { return s.tmpl.passwordReset(n) })
}

func (s *SMTPSender) SendContactMessage(ctx context.Context, m domain.ContactMessage) error {
	return s.sendRendered(ctx, "contact_message", func() (message, error) { return s.tmpl.contactMessage(m) })
}

func (s *SMTPSender) SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error {
	return s.sendRendered(ctx, "contact_confirmation", func() (message, error) { return s.tmpl.contactConfirmation(m) })
}

func (s *SMTPSender) sendRendered(ctx context.Context, kind string, render func() (message, error)) error {
	msg, err := render()
	if err != nil {
		sentTotal.WithLabelValues(kind, "render_error").Inc()
		return domain.ErrNotificationFailed(PermanentError{msg: "render " + kind + ": " + err.Error()})
	}
	if err := s.send(ctx, msg); err != nil {
		sentTotal.WithLabelValues(kind, "error").Inc()
		return domain.ErrNotificationFailed(err)
	}
	sentTotal.WithLabelValues(kind, "ok").Inc()
	return nil
}

func (s *SMTPSender) send(ctx context.Context, msg message) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return PermanentError{msg: "invalid from address: " + err.Error()}
	}
	if err := m.To(msg.To); err != nil {
		return PermanentError{msg: "invalid to address: " + err.Error()}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	s.lg.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("attempting smtp send")
	if err := s.deliver(ctx, m); err != nil {
		s.lg.Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return classify(err)
	}
	s.lg.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("smtp send ok")
	return nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *mail.Msg) error {
	tlsPolicy := mail.TLSMandatory
	if s.cfg.Insecure {
		tlsPolicy = mail.TLSOpportunistic
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.cfg.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.cfg.Username), mail.WithPassword(s.cfg.Password))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return PermanentError{msg: "smtp client init failed: " + err.Error()}
	}
	return c.DialAndSendWithContext(ctx, m)
}

// TemporaryError marks a retriable failure (network timeout, SMTP 4xx).
type TemporaryError struct{ msg string }

func (e TemporaryError) Error() string   { return e.msg }
func (e TemporaryError) Temporary() bool { return true }
func (e TemporaryError) Permanent() bool { return false }

// PermanentError marks a non-retriable failure (bad address, auth rejected).
type PermanentError struct{ msg string }

func (e PermanentError) Error() string   { return e.msg }
func (e PermanentError) Permanent() bool { return true }

// classify decides retryability from the SMTP reply, never from error text.
// go-mail send errors carry their own verdict; bare replies (AUTH, dial-time
// EHLO) are permanent on 5xx. Anything without a reply code is transient.
func classify(err error) error {
	var perm PermanentError
	if errors.As(err, &perm) {
		return perm
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		if sendErr.IsTemp() {
			return TemporaryError{msg: "smtp transient failure: " + err.Error()}
		}
		return PermanentError{msg: "smtp rejected: " + err.Error()}
	}
	var reply *textproto.Error
	if errors.As(err, &reply) && reply.Code >= 500 && reply.Code < 600 {
		return PermanentError{msg: "smtp rejected: " + err.Error()}
	}
	return TemporaryError{msg: "smtp transient failure: " + err.Error()}
}
