// Package verification owns the registration lifecycle: a new account starts
// pending and is moved exactly once to approved or rejected by an admin.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/domain"
)

type Config struct {
	// AdminEmail receives review requests and is recorded as the actor for
	// decisions made through emailed links.
	AdminEmail  string
	BackendURL  string
	FrontendURL string
}

type Workflow struct {
	users  UserRepo
	reps   RepresentativeRepo
	hasher PasswordHasher
	notify Notifier
	cfg    Config

	log   zerolog.Logger
	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)
}

func NewWorkflow(users UserRepo, reps RepresentativeRepo, hasher PasswordHasher, notify Notifier, cfg Config) *Workflow {
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Workflow{
		users:  users,
		reps:   reps,
		hasher: hasher,
		notify: notify,
		cfg:    cfg,
		log:    zerolog.Nop(),
		now:    time.Now,
		audit:  func(context.Context, string, map[string]string) {},
	}
}

func (w *Workflow) WithLogger(l zerolog.Logger) *Workflow {
	w.log = l.With().Str("component", "verification").Logger()
	return w
}

func (w *Workflow) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Workflow {
	if fn != nil {
		w.audit = fn
	}
	return w
}

func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	if now != nil {
		w.now = now
	}
	return w
}

// AdminEmail is the identity recorded for link-based decisions.
func (w *Workflow) AdminEmail() string { return w.cfg.AdminEmail }

// newVerificationToken returns 32 random bytes, hex encoded.
func newVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (w *Workflow) decisionURL(token string, action domain.Action) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("action", string(action))
	return w.cfg.BackendURL + "/api/users/admin-verify?" + q.Encode()
}

func (w *Workflow) loadProfile(ctx context.Context, u domain.User) (domain.Profile, error) {
	if !u.Representative.IsSet() {
		return domain.NewProfile(u, nil), nil
	}
	rep, err := w.reps.GetByID(ctx, u.Representative.ID())
	if err != nil {
		if domain.Is(err, "representative_not_found") {
			// Dangling reference: show the user without a representative.
			return domain.NewProfile(u, nil), nil
		}
		return domain.Profile{}, err
	}
	return domain.NewProfile(u, &rep), nil
}
