package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Oct4Pie/toolbridge/internal/config"
	"github.com/Oct4Pie/toolbridge/internal/server"
)

const version = "0.1.0"

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	port       = flag.Int("port", 0, "Proxy listen port (overrides config)")
)

func main() {
	flag.Parse()

	fmt.Printf("toolbridge %s\n", version)
	fmt.Printf("configuration: %s\n", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfiguration(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.ProxyPort = *port
	}

	fmt.Printf("backend mode: %s\n", cfg.BackendMode)
	fmt.Printf("listening on: %s:%d\n", cfg.Addr(), cfg.ProxyPort)

	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to start server: %v\n", err)
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	fmt.Printf("received signal: %v, shutting down\n", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: graceful shutdown failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("server stopped")
}

// loadConfiguration loads and validates the proxy configuration from
// cfgPath, falling back to defaults plus environment variables when the
// file does not exist.
func loadConfiguration(ctx context.Context, cfgPath string) (*config.Config, error) {
	mgr, err := config.NewManager(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if err := mgr.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := mgr.Validate(ctx); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return mgr.Get(ctx), nil
}
