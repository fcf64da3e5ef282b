package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	LogLevel  string `env:"DRAT_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"DRAT_LOG_PRETTY" envDefault:"true"`

	// RelayURL selects the HTTP relay; empty means the in-process transport.
	RelayURL    string        `env:"DRAT_RELAY_URL"`
	HTTPTimeout time.Duration `env:"DRAT_HTTP_TIMEOUT" envDefault:"10s"`
	Shuffle     bool          `env:"DRAT_SHUFFLE" envDefault:"false"`

	RelayAddr   string `env:"DRAT_RELAY_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"DRAT_METRICS_ADDR" envDefault:":9090"`
	// RedisAddr selects the Redis mailbox; empty means in-memory.
	RedisAddr     string `env:"DRAT_REDIS_ADDR"`
	RedisPassword string `env:"DRAT_REDIS_PASSWORD"`
	RedisDB       int    `env:"DRAT_REDIS_DB" envDefault:"0"`

	MaxSkip          uint64 `env:"DRAT_MAX_SKIP" envDefault:"100"`
	MaxSkippedChains int    `env:"DRAT_MAX_SKIPPED_CHAINS" envDefault:"4"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the ratchet cannot run with.
func (c Config) Validate() error {
	if c.MaxSkip == 0 {
		return fmt.Errorf("DRAT_MAX_SKIP must be positive")
	}
	if c.MaxSkippedChains < 0 {
		return fmt.Errorf("DRAT_MAX_SKIPPED_CHAINS must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("DRAT_HTTP_TIMEOUT must be positive")
	}
	return nil
}
