// Package server wires the storefront platform to an HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/txn2/storefront/pkg/platform"
)

// Build information, set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewLogger creates the process logger from the logging configuration.
func NewLogger(w io.Writer, cfg platform.LoggingConfig) (*slog.Logger, error) {
	level, err := platform.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// NewWithConfig loads the configuration file and creates the platform. The
// returned logger is configured from the file's logging section.
func NewWithConfig(path string, w io.Writer) (*platform.Platform, *slog.Logger, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := NewLogger(w, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	p, err := platform.New(platform.WithConfig(cfg), platform.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}
	return p, logger, nil
}

// NewHTTPServer creates the HTTP server for handler.
func NewHTTPServer(cfg platform.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

// Serve runs srv on ln until ctx is done, then shuts it down gracefully
// within shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "address", ln.Addr().String(), "version", Version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
