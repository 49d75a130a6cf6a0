package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Catalog source kinds.
const (
	CatalogHTTP     = "http"
	CatalogPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (COUNTER_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL, used when the catalog source is postgres" flag:"database-url"`
	Catalog     CatalogConfig
	Ledger      LedgerConfig
	Sessions    SessionsConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CatalogConfig selects where product and combo snapshots are read from.
type CatalogConfig struct {
	Source  string        `default:"http" usage:"Catalog source: http or postgres"`
	URL     string        `usage:"Catalog service base URL (source=http)"`
	Token   string        `usage:"Authorization token for the catalog service"`
	Timeout time.Duration `default:"5s" usage:"Catalog request timeout"`
}

// LedgerConfig points at the sales ledger service.
type LedgerConfig struct {
	URL     string        `usage:"Ledger service base URL"`
	Token   string        `usage:"Authorization token for the ledger service"`
	Timeout time.Duration `default:"10s" usage:"Ledger request timeout"`
}

// SessionsConfig controls how long an untouched session is kept.
type SessionsConfig struct {
	IdleTimeout time.Duration `default:"30m" usage:"Drop sessions unused for this long (0 keeps them until closed)" flag:"session-idle-timeout"`
}

// RateLimitConfig controls the per-client request limit. Max 0 disables it.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window per client"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "COUNTER",
		Files:     []string{"config.yaml", "/etc/counter/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing or contradictory settings.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogHTTP:
		if c.Catalog.URL == "" {
			return errors.New("catalog URL is required: set COUNTER_CATALOG_URL")
		}
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set COUNTER_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if c.Ledger.URL == "" {
		return errors.New("ledger URL is required: set COUNTER_LEDGER_URL")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
