package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/sales-service/internal/domain/money"
)

const defaultAddr = "0.0.0.0:8080"

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (SALES_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Sales     SalesConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects where sales and the catalog live.
type StorageConfig struct {
	Driver          string        `default:"postgres" usage:"Storage driver: postgres or memory"`
	DatabaseURL     string        `usage:"PostgreSQL connection URL (SALES_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MaxConns        int32         `default:"10" usage:"Maximum PostgreSQL connections"`
	MaxConnLifetime time.Duration `default:"1h" usage:"Recycle PostgreSQL connections older than this"`
	// CatalogFile seeds the memory driver. The embedded catalog is used when empty.
	CatalogFile     string        `usage:"Catalog JSON (or .json.gz) loaded by the memory driver" flag:"catalog-file"`
}

// SalesConfig holds the sale rules that are deployment specific.
type SalesConfig struct {
	MaxQuantityPerProduct int    `default:"20" usage:"Maximum identical units of one product per sale"`
	DefaultCurrency       string `default:"USD" usage:"Currency of sales without items"`
}

// EventsConfig controls forwarding of sale events to a Redis stream. Events
// are only logged when RedisAddr is empty.
type EventsConfig struct {
	RedisAddr        string        `usage:"Redis address (SALES_EVENTS_REDIS_ADDR or REDIS_URL)" flag:"redis-addr"`
	RedisStream      string        `default:"sales.events" usage:"Redis stream receiving sale events"`
	MaxLen           int64         `default:"100000" usage:"Approximate stream length cap, 0 disables trimming"`
	FailureThreshold uint32        `default:"5" usage:"Consecutive publish failures that open the circuit breaker"`
	OpenTimeout      time.Duration `default:"30s" usage:"How long the circuit breaker stays open"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max      int           `default:"100" usage:"Max requests per window"`
	WriteMax int           `default:"30" usage:"Max sale writes per window, 0 shares the read budget" flag:"rate-limit-write-max"`
	Window   time.Duration `default:"1m"  usage:"Rate limit window duration"`
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

// LoadConfig loads configuration from environment variables, YAML config
// files and command-line flags, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/sales/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "SALES"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set SALES_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Sales.MaxQuantityPerProduct <= 0 {
		return errors.Errorf("max quantity per product must be positive, got %d", c.Sales.MaxQuantityPerProduct)
	}
	if err := money.ValidateCurrency(c.Sales.DefaultCurrency); err != nil {
		return errors.Wrap(err, "default currency")
	}
	if c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}
	if c.RateLimit.Max <= 0 {
		return errors.Errorf("rate limit max must be positive, got %d", c.RateLimit.Max)
	}
	if c.RateLimit.WriteMax < 0 {
		return errors.Errorf("rate limit write max cannot be negative, got %d", c.RateLimit.WriteMax)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SALES_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Events.RedisAddr == "" {
		c.Events.RedisAddr = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
