package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"27121"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173,app://."`

	// Store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/notetree.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	TablePrefix string `env:"TABLE_PREFIX"`

	// Tree manager
	HistoryDepth  int     `env:"HISTORY_DEPTH" envDefault:"0"` // 0 = unbounded
	CacheSize     int     `env:"CACHE_SIZE" envDefault:"2048"`
	SortIncrement float64 `env:"SORT_INCREMENT" envDefault:"1"`

	// Retention of soft-deleted nodes before the store purges them
	PurgeAfter    time.Duration `env:"PURGE_AFTER" envDefault:"720h"`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"24h"`

	// Logging
	LogDir      string `env:"LOG_DIR"` // Empty = stdout only
	LogMaxFiles int    `env:"LOG_MAX_FILES" envDefault:"10"`

	// Debug flags
	Debug bool `env:"DEBUG"`
}

// Load reads configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.TablePrefix == "" {
		cfg.TablePrefix = getTablePrefix(cfg.Environment)
	}
	if _, set := os.LookupEnv("DEBUG"); !set {
		cfg.Debug = cfg.Environment != "prod"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.HistoryDepth < 0 {
		return fmt.Errorf("HISTORY_DEPTH must be >= 0")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be > 0")
	}
	if c.SortIncrement <= 0 {
		return fmt.Errorf("SORT_INCREMENT must be > 0")
	}
	if c.PurgeAfter < 0 {
		return fmt.Errorf("PURGE_AFTER must be >= 0 (0 disables purging)")
	}
	if c.PurgeAfter > 0 && c.PurgeInterval <= 0 {
		return fmt.Errorf("PURGE_INTERVAL must be > 0 when purging is enabled")
	}
	return nil
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}
