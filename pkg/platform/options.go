package platform

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/txn2/storefront/pkg/visitor"
)

// Options configures the platform.
type Options struct {
	// Config is the storefront configuration.
	Config *Config

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger

	// DB is the PostgreSQL connection (optional, opened from
	// database.dsn if not provided).
	DB *sql.DB

	// Visitors (optional, created from config if not provided).
	Visitors visitor.Store

	// BackendTransport overrides the HTTP transport of backend clients.
	BackendTransport http.RoundTripper
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithVisitorStore sets the visitor store.
func WithVisitorStore(store visitor.Store) Option {
	return func(o *Options) {
		o.Visitors = store
	}
}

// WithBackendTransport sets the HTTP transport used to reach the backend.
func WithBackendTransport(rt http.RoundTripper) Option {
	return func(o *Options) {
		o.BackendTransport = rt
	}
}
