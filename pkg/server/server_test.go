package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskgate-hq/taskgate/pkg/admission"
	"taskgate-hq/taskgate/pkg/config"
	"taskgate-hq/taskgate/pkg/store"
)

// countingSink counts executions without touching a database.
type countingSink struct {
	executed int
}

func (s *countingSink) Execute(ctx context.Context, user string) error {
	s.executed++
	return nil
}

// newTestServer wires a full admission pipeline on a memory store.
func newTestServer(t *testing.T) (*Server, *store.MemoryStore, func()) {
	t.Helper()

	st := store.NewMemoryStore()
	sink := &countingSink{}

	limiter := admission.NewLimiter(st, admission.LimiterConfig{
		BurstLimit:      1,
		BurstWindow:     time.Second,
		SustainedLimit:  20,
		SustainedWindow: 60 * time.Second,
	})
	backlog := admission.NewBacklog(st)
	drainer := admission.NewDrainer(st, limiter, backlog, sink, nil, admission.DrainerConfig{
		Interval: 10 * time.Millisecond,
		LeaseTTL: time.Second,
	})
	svc := admission.NewService(limiter, backlog, drainer, sink, nil)

	cfg := config.NewDefaultConfig()
	cfg.Telemetry.Metrics.Enabled = false

	srv := NewServer(&cfg.Server, &cfg.Telemetry.Metrics, svc, st)
	cleanup := func() {
		drainer.Stop()
		st.Close()
	}
	return srv, st, cleanup
}

func TestServerTaskRoundTrip(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	handler := srv.Handler()

	submit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks",
			strings.NewReader(`{"user_id": "alice"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// First request completes; the immediate second one is deferred.
	if rec := submit(); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for first task, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := submit()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 for second task, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["message"] != "Rate limit exceeded. Task queued." {
		t.Errorf("Unexpected deferral message %q", resp["message"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected request ID header on response")
	}
}

func TestServerHealthEndpoints(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	handler := srv.Handler()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200 from %s, got %d", path, rec.Code)
		}
	}
}

func TestServerMetricsDisabled(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with metrics disabled, got %d", rec.Code)
	}
}
