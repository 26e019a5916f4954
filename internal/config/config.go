package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	WebDir  string `env:"WEB_DIR"`

	StorageDriver    string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// API limits
	APIRateLimit  int           `env:"API_RATE_LIMIT" envDefault:"60"`
	APIRateWindow time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	// Rebalance rewrites every row; limited separately per client.
	RebalanceRateLimit int `env:"REBALANCE_RATE_LIMIT" envDefault:"6"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Rank engine
	ConflictRetries int `env:"CONFLICT_RETRIES" envDefault:"3"`
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"0"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.ConflictRetries < 0 {
		return errors.New("CONFLICT_RETRIES must not be negative")
	}
	if c.DefaultPageSize < 0 {
		return errors.New("DEFAULT_PAGE_SIZE must not be negative")
	}
	if c.APIRateLimit < 0 {
		return errors.New("API_RATE_LIMIT must not be negative")
	}
	if c.RebalanceRateLimit < 0 {
		return errors.New("REBALANCE_RATE_LIMIT must not be negative")
	}
	return nil
}
