package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/domain"
)

// LogNotifier writes notifications to the log instead of sending them.
// It also records what it was asked to send, for local inspection.
type LogNotifier struct {
	log zerolog.Logger

	mu   sync.Mutex
	sent []Sent
}

// Sent is one recorded notification.
type Sent struct {
	Kind    string
	To      string
	Payload any
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) record(kind, to string, payload any) {
	n.mu.Lock()
	n.sent = append(n.sent, Sent{Kind: kind, To: to, Payload: payload})
	n.mu.Unlock()
	n.log.Info().Str("kind", kind).Str("to", to).Msg("notification (log only)")
}

// Sent returns a copy of everything recorded so far.
func (n *LogNotifier) Sent() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Sent, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *LogNotifier) SendAdminReviewRequest(_ context.Context, req domain.ReviewRequest) error {
	n.record("admin_review_request", req.AdminEmail, req)
	return nil
}

func (n *LogNotifier) SendDecision(_ context.Context, d domain.DecisionNotice) error {
	n.record("decision", d.Email, d)
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, p domain.PasswordResetNotice) error {
	n.record("password_reset", p.Email, p)
	return nil
}

func (n *LogNotifier) SendContactMessage(_ context.Context, m domain.ContactMessage) error {
	n.record("contact_message", m.AdminEmail, m)
	return nil
}

func (n *LogNotifier) SendContactConfirmation(_ context.Context, m domain.ContactMessage) error {
	n.record("contact_confirmation", m.FromEmail, m)
	return nil
}
