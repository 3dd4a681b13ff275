package platform

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/storefront/pkg/gateway"
	"github.com/txn2/storefront/pkg/intent"
)

// Config holds the storefront configuration.
type Config struct {
	APIVersion string         `yaml:"apiVersion"`
	Server     ServerConfig   `yaml:"server"`
	Logging    LoggingConfig  `yaml:"logging"`
	Backend    BackendConfig  `yaml:"backend"`
	Auth       AuthConfig     `yaml:"auth"`
	Intent     IntentConfig   `yaml:"intent"`
	Gateway    GatewayConfig  `yaml:"gateway"`
	Visitor    VisitorConfig  `yaml:"visitor"`
	Catalog    CatalogConfig  `yaml:"catalog"`
	Database   DatabaseConfig `yaml:"database"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BackendConfig locates the commerce backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures the external authentication redirect.
type AuthConfig struct {
	// URL is the authentication page visitors are sent to.
	URL string `yaml:"url"`

	// ReturnURL is where the authentication page sends visitors back to.
	// It should point at the gateway's /auth/return.
	ReturnURL string `yaml:"return_url"`
}

// IntentConfig configures pending-action tokens.
type IntentConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// GatewayConfig configures the browser-facing API.
type GatewayConfig struct {
	CookieName     string   `yaml:"cookie_name"`
	CookieSecure   bool     `yaml:"cookie_secure"`
	ForwardCookies []string `yaml:"forward_cookies"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// VisitorConfig configures visitor records and in-memory shoppers.
type VisitorConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// CatalogConfig configures the catalog read cache.
type CatalogConfig struct {
	// CacheTTL is how long catalog reads are cached. Negative disables it.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Warm preloads every collection on start.
	Warm bool `yaml:"warm"`
}

// DatabaseConfig configures the optional PostgreSQL visitor store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	// AutoMigrate applies pending migrations on start. Defaults to true.
	AutoMigrate *bool `yaml:"auto_migrate"`
}

// MigrateOnStart reports whether migrations run on start.
func (d DatabaseConfig) MigrateOnStart() bool {
	return d.AutoMigrate == nil || *d.AutoMigrate
}

const (
	defaultServerName      = "storefront"
	defaultAddress         = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBackendTimeout  = 10 * time.Second
	defaultVisitorTTL      = 30 * 24 * time.Hour
	defaultIdleTimeout     = 30 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
	defaultMaxOpenConns    = 10
)

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	version := PeekVersion(data)
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.APIVersion = version

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultServerName
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = defaultBackendTimeout
	}
	if cfg.Intent.Issuer == "" {
		cfg.Intent.Issuer = intent.DefaultIssuer
	}
	if cfg.Intent.TTL == 0 {
		cfg.Intent.TTL = intent.DefaultTTL
	}
	if cfg.Gateway.CookieName == "" {
		cfg.Gateway.CookieName = gateway.DefaultCookieName
	}
	if cfg.Visitor.TTL == 0 {
		cfg.Visitor.TTL = defaultVisitorTTL
	}
	if cfg.Visitor.IdleTimeout == 0 {
		cfg.Visitor.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Visitor.CleanupInterval == 0 {
		cfg.Visitor.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if err := requireAbsoluteURL(c.Backend.BaseURL); err != nil {
		errs = append(errs, "backend.base_url "+err.Error())
	}
	if err := requireAbsoluteURL(c.Auth.URL); err != nil {
		errs = append(errs, "auth.url "+err.Error())
	}
	if err := requireAbsoluteURL(c.Auth.ReturnURL); err != nil {
		errs = append(errs, "auth.return_url "+err.Error())
	}
	if c.Intent.Secret == "" {
		errs = append(errs, "intent.secret is required")
	}
	if c.Intent.TTL < 0 {
		errs = append(errs, "intent.ttl must be positive")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if c.Visitor.IdleTimeout < 0 || c.Visitor.CleanupInterval < 0 || c.Visitor.TTL < 0 {
		errs = append(errs, "visitor durations must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func requireAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL, got %q", raw)
	}
	return nil
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", level)
	}
}
