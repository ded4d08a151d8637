package dispatcher

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Oct4Pie/toolbridge/internal/backendclient"
	"github.com/Oct4Pie/toolbridge/internal/config"
)

func newTestDispatcher(t *testing.T, openaiURL, ollamaURL string) *Dispatcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MaxStreamBufferSize = 64 * 1024
	var openaiClient, ollamaClient *backendclient.Client
	if openaiURL != "" {
		openaiClient = backendclient.New(openaiURL, "/chat/completions", "test-key", 5*time.Second)
	}
	if ollamaURL != "" {
		ollamaClient = backendclient.New(ollamaURL, "", "", 5*time.Second)
	}
	return New(cfg, openaiClient, ollamaClient, nil, nil)
}

func TestServeOpenAIChatPassthroughBatch(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	}))
	defer backend.Close()

	d := newTestDispatcher(t, backend.URL, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(
		`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()

	d.ServeOpenAIChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "hi there") {
		t.Fatalf("expected backend content passed through, got %s", rec.Body.String())
	}
}

func TestServeOpenAIChatRejectsEmptyMessages(t *testing.T) {
	d := newTestDispatcher(t, "http://unused", "")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gpt-4o","messages":[]}`))
	rec := httptest.NewRecorder()

	d.ServeOpenAIChat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty messages, got %d", rec.Code)
	}
}

func TestServeOllamaChatForcedByAuthorizationHeader(t *testing.T) {
	var sawRequest bool
	ollamaBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRequest = true
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","created_at":"now","message":{"role":"assistant","content":"hi"},"done":true}`))
	}))
	defer ollamaBackend.Close()

	cfg := config.DefaultConfig()
	cfg.BackendMode = config.BackendOpenAI
	openaiClient := backendclient.New("http://unused", "/chat/completions", "k", 5*time.Second)
	ollamaClient := backendclient.New(ollamaBackend.URL, "", "", 5*time.Second)
	d := New(cfg, openaiClient, ollamaClient, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(
		`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Authorization", "Bearer ollama")
	rec := httptest.NewRecorder()

	d.ServeOpenAIChat(rec, req)

	if !sawRequest {
		t.Fatal("expected request forced to ollama backend despite openai backend mode")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServeOpenAIChatStreamingPassthrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fw := bufio.NewWriter(w)
		fw.WriteString("data: {\"id\":\"1\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"hello\"},\"finish_reason\":null}]}\n\n")
		fw.WriteString("data: {\"id\":\"1\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fw.WriteString("data: [DONE]\n\n")
		fw.Flush()
	}))
	defer backend.Close()

	d := newTestDispatcher(t, backend.URL, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(
		`{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()

	d.ServeOpenAIChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "hello") {
		t.Fatalf("expected streamed content in body, got %s", rec.Body.String())
	}
	if !strings.HasSuffix(strings.TrimSpace(rec.Body.String()), "[DONE]") {
		t.Fatalf("expected stream to end with [DONE], got %s", rec.Body.String())
	}
}
