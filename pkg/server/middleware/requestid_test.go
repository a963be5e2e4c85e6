package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Error("Expected a generated request ID in the context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Errorf("Expected response header %q to match context ID %q", got, captured)
	}
}

func TestRequestIDClientProvided(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "client-id-123" {
		t.Errorf("Expected client-provided ID to be honored, got %q", captured)
	}
}

func TestRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[GetRequestID(r.Context())] = true
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(seen) != 10 {
		t.Errorf("Expected 10 unique request IDs, got %d", len(seen))
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("Expected empty ID for bare context, got %q", got)
	}
}
