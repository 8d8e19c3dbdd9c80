package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	pkgctx "github.com/baechuer/member-portal/internal/pkg/context"
)

// Logger records business audit events (registrations, decisions, logins)
// as structured log lines and counts them.
type Logger struct {
	log    zerolog.Logger
	events *prometheus.CounterVec
}

// New creates an audit logger. reg may be nil when metrics are not exported.
func New(log zerolog.Logger, reg prometheus.Registerer) *Logger {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_audit_events_total",
		Help: "Audit events by action and result.",
	}, []string{"action", "result"})
	if reg != nil {
		if err := reg.Register(events); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				events = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return &Logger{
		log:    log.With().Bool("audit", true).Logger(),
		events: events,
	}
}

// Record matches the services' WithAudit hook signature.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	result := fields["result"]
	if result == "" {
		result = "success"
	}
	l.events.WithLabelValues(action, result).Inc()

	evt := l.log.Info()
	if result != "success" {
		evt = l.log.Warn()
	}
	evt = evt.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if strings.Contains(k, "email") {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}

	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	if ip := pkgctx.GetClientIP(ctx); ip != "" {
		evt = evt.Str("ip", ip)
	}
	evt.Msg("audit")
}

// maskEmail partially masks an email for privacy in logs.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 5 || at < 0 {
		return "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
