// Package notify decorates whichever notification adapter is configured
// with delivery metrics.
package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/baechuer/member-portal/internal/domain"
)

// Notifier is the union of the outbound notifications the services use.
type Notifier interface {
	SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error
	SendDecision(ctx context.Context, n domain.DecisionNotice) error
	SendPasswordReset(ctx context.Context, n domain.PasswordResetNotice) error
	SendContactMessage(ctx context.Context, m domain.ContactMessage) error
	SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error
}

const (
	KindAdminReview         = "admin_review_request"
	KindDecision            = "decision"
	KindPasswordReset       = "password_reset"
	KindContactMessage      = "contact_message"
	KindContactConfirmation = "contact_confirmation"
)

// Instrumented counts attempts and failures per notification kind.
type Instrumented struct {
	next     Notifier
	attempts *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func Instrument(next Notifier, reg prometheus.Registerer) *Instrumented {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_notifications_total",
		Help: "Notifications handed to the configured notifier.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_notifications_failed_total",
		Help: "Notifications the configured notifier failed to deliver.",
	}, []string{"kind"})

	if reg != nil {
		attempts = register(reg, attempts)
		failures = register(reg, failures)
	}
	return &Instrumented{next: next, attempts: attempts, failures: failures}
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return c
}

func (n *Instrumented) observe(kind string, err error) error {
	n.attempts.WithLabelValues(kind).Inc()
	if err != nil {
		n.failures.WithLabelValues(kind).Inc()
	}
	return err
}

func (n *Instrumented) SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error {
	return n.observe(KindAdminReview, n.next.SendAdminReviewRequest(ctx, req))
}

func (n *Instrumented) SendDecision(ctx context.Context, d domain.DecisionNotice) error {
	return n.observe(KindDecision, n.next.SendDecision(ctx, d))
}

func (n *Instrumented) SendPasswordReset(ctx context.Context, p domain.PasswordResetNotice) error {
	return n.observe(KindPasswordReset, n.next.SendPasswordReset(ctx, p))
}

func (n *Instrumented) SendContactMessage(ctx context.Context, m domain.ContactMessage) error {
	return n.observe(KindContactMessage, n.next.SendContactMessage(ctx, m))
}

func (n *Instrumented) SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error {
	return n.observe(KindContactConfirmation, n.next.SendContactConfirmation(ctx, m))
}
