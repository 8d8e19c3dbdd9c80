package http_handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baechuer/member-portal/internal/logger"
	"github.com/baechuer/member-portal/internal/transport/http/response"
)

const readinessTimeout = 2 * time.Second

// Pinger is a backing service the API cannot serve without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

// HealthStatus is the /healthz and /readyz body. Checks maps each
// dependency to "ok" or "unavailable".
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler takes the named dependencies checked by /readyz.
// Nil entries are skipped.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	live := make(map[string]Pinger, len(deps))
	for name, d := range deps {
		if d != nil {
			live[name] = d
		}
	}
	return &HealthHandler{deps: live}
}

// Healthz handles GET /healthz. It never touches dependencies.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
}

// Readyz handles GET /readyz, pinging every dependency in parallel.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(h.deps))
		g      errgroup.Group
	)
	for name, dep := range h.deps {
		g.Go(func() error {
			state := "ok"
			if err := dep.Ping(ctx); err != nil {
				state = "unavailable"
				logger.WithCtx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			}
			mu.Lock()
			checks[name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	body, status := HealthStatus{Status: "ready", Checks: checks}, http.StatusOK
	for _, state := range checks {
		if state != "ok" {
			body.Status, status = "unavailable", http.StatusServiceUnavailable
			break
		}
	}
	response.WriteJSON(w, status, body)
}
