package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"drat/internal/app"
)

func relayCmd() *cobra.Command {
	var addr, metricsAddr, redisAddr string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve the store-and-forward relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appCtx.Config
			if cmd.Flags().Changed("addr") {
				cfg.RelayAddr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("redis") {
				cfg.RedisAddr = redisAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunRelay(ctx, cfg, appCtx.Logger.With().Str("component", "relay").Logger())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "metrics listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for mailboxes; empty keeps them in memory")
	return cmd
}
