// Package platform assembles the storefront gateway from configuration and
// manages the lifetime of its components.
package platform

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/catalog"
	"github.com/txn2/storefront/pkg/database/migrate"
	"github.com/txn2/storefront/pkg/gateway"
	"github.com/txn2/storefront/pkg/health"
	"github.com/txn2/storefront/pkg/intent"
	"github.com/txn2/storefront/pkg/storefront"
	"github.com/txn2/storefront/pkg/visitor"
	visitorpg "github.com/txn2/storefront/pkg/visitor/postgres"
)

// Platform is the storefront facade.
type Platform struct {
	config    *Config
	logger    *slog.Logger
	lifecycle *Lifecycle

	db       *sql.DB
	ownsDB   bool
	codec    *intent.Codec
	visitors visitor.Store
	shoppers *storefront.Manager
	catalog  *catalog.Service
	health   *health.Checker
	gateway  *gateway.Handler

	newBackend func() (*backend.Client, error)
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Platform{
		config:    options.Config,
		logger:    logger,
		lifecycle: NewLifecycle(logger),
		health:    health.NewChecker(),
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.closeDB()
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

// initializeComponents builds the components and registers their lifecycle.
func (p *Platform) initializeComponents(opts *Options) error {
	cfg := p.config

	p.newBackend = func() (*backend.Client, error) {
		return backend.New(backend.Config{
			BaseURL:   cfg.Backend.BaseURL,
			Timeout:   cfg.Backend.Timeout,
			Transport: opts.BackendTransport,
		})
	}

	codec, err := intent.NewCodec(intent.CodecConfig{
		Secret: cfg.Intent.Secret,
		Issuer: cfg.Intent.Issuer,
		TTL:    cfg.Intent.TTL,
	})
	if err != nil {
		return fmt.Errorf("creating intent codec: %w", err)
	}
	p.codec = codec

	if err := p.initDatabase(opts); err != nil {
		return err
	}
	p.initVisitors(opts)

	if err := p.initShoppers(); err != nil {
		return err
	}
	if err := p.initCatalog(); err != nil {
		return err
	}

	p.gateway = gateway.New(gateway.Config{
		CookieName:     cfg.Gateway.CookieName,
		CookieSecure:   cfg.Gateway.CookieSecure,
		CookieMaxAge:   cfg.Visitor.TTL,
		ForwardCookies: cfg.Gateway.ForwardCookies,
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
	}, gateway.Deps{
		Shoppers: p.shoppers,
		Catalog:  p.catalog,
		Health:   p.health,
		Logger:   p.logger,
	})

	p.lifecycle.Append("health",
		func(context.Context) error {
			p.health.SetReady()
			return nil
		},
		func(context.Context) error {
			p.health.SetDraining()
			return nil
		})
	return nil
}

// initDatabase opens the database when a DSN is configured and registers
// migrations and the readiness check.
func (p *Platform) initDatabase(opts *Options) error {
	p.db = opts.DB
	if p.db == nil && p.config.Database.DSN != "" {
		db, err := sql.Open("postgres", p.config.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
		p.db = db
		p.ownsDB = true
	}
	if p.db == nil {
		return nil
	}

	if p.config.Database.MigrateOnStart() {
		p.lifecycle.Append("migrations", func(context.Context) error {
			return migrate.Run(p.db)
		}, nil)
	}
	if p.ownsDB {
		p.lifecycle.AppendCloser("database", p.db)
	}
	p.health.AddCheck("database", p.db.PingContext)
	return nil
}

// initVisitors selects the visitor store: the given one, PostgreSQL when a
// database is available, or memory.
func (p *Platform) initVisitors(opts *Options) {
	switch {
	case opts.Visitors != nil:
		p.visitors = opts.Visitors
	case p.db != nil:
		p.visitors = visitorpg.New(p.db, visitorpg.Config{TTL: p.config.Visitor.TTL, Logger: p.logger})
	default:
		p.visitors = visitor.NewMemoryStore(p.config.Visitor.TTL)
	}
	p.lifecycle.AppendCloser("visitors", p.visitors)
}

func (p *Platform) initShoppers() error {
	shoppers, err := storefront.NewManager(storefront.ManagerConfig{
		NewBackend: func() (storefront.Backend, error) { return p.newBackend() },
		Shopper: storefront.ShopperConfig{
			AuthURL:   p.config.Auth.URL,
			ReturnURL: p.config.Auth.ReturnURL,
			Codec:     p.codec,
			Logger:    p.logger,
		},
		Visitors:    p.visitors,
		VisitorTTL:  p.config.Visitor.TTL,
		IdleTimeout: p.config.Visitor.IdleTimeout,
		Logger:      p.logger,
	})
	if err != nil {
		return fmt.Errorf("creating shopper manager: %w", err)
	}
	p.shoppers = shoppers

	p.lifecycle.Append("shoppers",
		func(context.Context) error {
			shoppers.StartCleanupRoutine(p.config.Visitor.CleanupInterval)
			return nil
		},
		shoppers.Close)
	return nil
}

func (p *Platform) initCatalog() error {
	client, err := p.newBackend()
	if err != nil {
		return fmt.Errorf("creating catalog client: %w", err)
	}
	p.catalog = catalog.New(client, catalog.Config{TTL: p.config.Catalog.CacheTTL, Logger: p.logger})

	p.health.AddCheck("backend", func(ctx context.Context) error {
		_, err := client.Collections(ctx)
		return err
	})

	if p.config.Catalog.Warm {
		p.lifecycle.Append("catalog", func(ctx context.Context) error {
			if err := p.catalog.Warm(ctx); err != nil {
				p.logger.Warn("catalog warm-up failed", "error", err)
			}
			return nil
		}, nil)
	}
	return nil
}

// Start starts the platform components.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	p.logger.Info("storefront started",
		"name", p.config.Server.Name,
		"visitor_store", fmt.Sprintf("%T", p.visitors),
	)
	return nil
}

// Stop stops the platform components in reverse order.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// Handler returns the gateway HTTP handler.
func (p *Platform) Handler() http.Handler {
	return p.gateway
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// Shoppers returns the visitor manager.
func (p *Platform) Shoppers() *storefront.Manager {
	return p.shoppers
}

// Catalog returns the catalog service.
func (p *Platform) Catalog() *catalog.Service {
	return p.catalog
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

func (p *Platform) closeDB() error {
	if p.ownsDB && p.db != nil {
		return p.db.Close()
	}
	return nil
}
