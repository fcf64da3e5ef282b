package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"drat/internal/app"
	"drat/internal/observability"
)

func main() {
	cfg, err := app.LoadConfig()
	logger := observability.NewLogger("drat-relay", cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunRelay(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("relay failed")
		os.Exit(1)
	}
}
