package http_handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz_ReturnsOK(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler(nil)

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name       string
		deps       map[string]Pinger
		want       int
		wantStatus string
		wantChecks map[string]string
	}{
		{"no deps", nil, http.StatusOK, "ready", nil},
		{"store up", map[string]Pinger{"store": ok}, http.StatusOK, "ready", map[string]string{"store": "ok"}},
		{"nil dep skipped", map[string]Pinger{"redis": nil, "store": ok}, http.StatusOK, "ready", map[string]string{"store": "ok"}},
		{"store down", map[string]Pinger{"store": down}, http.StatusServiceUnavailable, "unavailable", map[string]string{"store": "unavailable"}},
		{
			"redis down store up",
			map[string]Pinger{"redis": down, "store": ok},
			http.StatusServiceUnavailable,
			"unavailable",
			map[string]string{"redis": "unavailable", "store": "ok"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHealthHandler(tc.deps).Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d; body=%s", tc.want, rr.Code, rr.Body.String())
			}
			var body HealthStatus
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.wantStatus || len(body.Checks) != len(tc.wantChecks) {
				t.Fatalf("unexpected body %+v", body)
			}
			for name, state := range tc.wantChecks {
				if body.Checks[name] != state {
					t.Fatalf("%s: want %q got %q", name, state, body.Checks[name])
				}
			}
		})
	}
}

func TestReadyz_PingsConcurrently(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	slow := pingerFunc(func(ctx context.Context) error {
		started.Done()
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	go func() {
		started.Wait()
		close(release)
	}()

	rr := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"store": slow, "redis": slow}).
		Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected both pings to overlap and succeed, got %d %s", rr.Code, rr.Body.String())
	}
}
