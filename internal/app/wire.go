package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"drat/internal/domain"
	"drat/internal/observability"
	"drat/internal/relay"
	"drat/internal/transport"
)

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := observability.NewLogger("drat", cfg.LogLevel, cfg.LogPretty)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var rc domain.RelayClient
	if cfg.RelayURL != "" {
		rc = relay.NewHTTPClient(cfg.RelayURL, httpClient)
		logger.Debug().Str("relay", cfg.RelayURL).Msg("using http relay")
	} else {
		var opts []transport.MemoryOption
		if cfg.Shuffle {
			opts = append(opts, transport.WithShuffle(time.Now().UnixNano()))
		}
		rc = transport.NewMemory(opts...)
		logger.Debug().Bool("shuffle", cfg.Shuffle).Msg("using in-memory transport")
	}

	return New(cfg, logger, rc, httpClient), nil
}

// NewMailbox builds the relay-side mailbox: Redis when DRAT_REDIS_ADDR is
// set, in-memory otherwise. The returned func releases it.
func NewMailbox(ctx context.Context, cfg Config, logger zerolog.Logger) (domain.Mailbox, func() error, error) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("using in-memory mailbox")
		return relay.NewMemoryMailbox(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info().Str("redis", cfg.RedisAddr).Msg("using redis mailbox")
	return relay.NewRedisMailbox(rdb), rdb.Close, nil
}
