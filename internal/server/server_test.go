package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Oct4Pie/toolbridge/internal/config"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ProxyPort = port
	cfg.BackendLLMBaseURL = "http://127.0.0.1:1" // unused by these tests, just needs to pass validation
	return cfg
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewBuildsServer(t *testing.T) {
	srv, err := New(testConfig(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	if srv.IsRunning() {
		t.Fatal("expected server not running before Start")
	}
}

func TestStartShutdownLifecycle(t *testing.T) {
	srv, err := New(testConfig(t, 18181))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !srv.IsRunning() {
		t.Fatal("expected IsRunning true after Start")
	}

	if err := srv.Start(); err == nil {
		t.Fatal("expected error starting an already-running server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if srv.IsRunning() {
		t.Fatal("expected IsRunning false after Shutdown")
	}

	if err := srv.Shutdown(ctx); err == nil {
		t.Fatal("expected error shutting down a non-running server")
	}
}

func TestHandleHealthReturnsOK(t *testing.T) {
	srv, err := New(testConfig(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Result().Body)
	if string(body) != `{"status":"healthy"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHandleHealthRejectsNonGet(t *testing.T) {
	srv, err := New(testConfig(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMuxRoutesChatEndpoints(t *testing.T) {
	srv, err := New(testConfig(t, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mux := srv.mux()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code == http.StatusNotFound {
		t.Fatal("expected /v1/chat/completions to be routed")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code == http.StatusNotFound {
		t.Fatal("expected /api/chat to be routed")
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
}
