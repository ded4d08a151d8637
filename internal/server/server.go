// Package server wires the proxy's HTTP lifecycle: the dispatcher,
// health/metrics endpoints, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Oct4Pie/toolbridge/internal/backendclient"
	"github.com/Oct4Pie/toolbridge/internal/config"
	"github.com/Oct4Pie/toolbridge/internal/dispatcher"
	"github.com/Oct4Pie/toolbridge/internal/logging"
	"github.com/Oct4Pie/toolbridge/internal/metrics"
)

// Server owns the proxy's HTTP lifecycle.
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	dispatcher *dispatcher.Dispatcher
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// New builds a Server from cfg, constructing the backend clients,
// translation dispatcher, and logger it needs.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	openaiClient := backendclient.New(cfg.BackendLLMBaseURL, cfg.BackendLLMChatPath, cfg.BackendLLMAPIKey, cfg.ConnectionTimeout)
	ollamaClient := backendclient.New(cfg.OllamaBaseURL, "/api/chat", "", cfg.ConnectionTimeout)

	disp := dispatcher.New(cfg, openaiClient, ollamaClient, logger, metrics.NewRecorder())

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:     cfg,
		logger:     logger,
		dispatcher: disp,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.dispatcher.ServeOpenAIChat)
	mux.HandleFunc("/api/chat", s.dispatcher.ServeOllamaChat)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start begins serving in a background goroutine and returns immediately.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	handler := logging.WithRequestIDMiddleware(s.mux())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Addr(), s.config.ProxyPort),
		Handler:      handler,
		ReadTimeout:  s.config.ConnectionTimeout,
		WriteTimeout: s.config.StreamConnectionTimeout,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("starting toolbridge proxy",
			zap.String("addr", s.httpServer.Addr),
			zap.String("backend_mode", string(s.config.BackendMode)),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests to finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.cancel()
	s.wg.Wait()
	_ = s.logger.Sync()

	return err
}

// Wait blocks until the server's context is cancelled, which happens on
// Shutdown.
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning reports whether Start has been called without a matching
// Shutdown.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
