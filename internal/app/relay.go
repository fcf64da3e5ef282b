package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"drat/internal/relay"
)

// RunRelay serves the relay described by cfg until ctx ends.
func RunRelay(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	mb, closeMailbox, err := NewMailbox(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMailbox(); err != nil {
			logger.Warn().Err(err).Msg("close mailbox")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return relay.NewServer(mb, logger, reg).Start(ctx, cfg.RelayAddr, cfg.MetricsAddr)
}
