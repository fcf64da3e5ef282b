package commands

import (
	"github.com/spf13/cobra"

	"drat/internal/app"
)

var (
	appCtx *app.App

	logLevel         string
	relayURL         string
	maxSkip          uint64
	maxSkippedChains int
)

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "drat",
		Short:         "Double Ratchet secure channel",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("relay") {
				cfg.RelayURL = relayURL
			}
			if flags.Changed("max-skip") {
				cfg.MaxSkip = maxSkip
			}
			if flags.Changed("max-skipped-chains") {
				cfg.MaxSkippedChains = maxSkippedChains
			}
			if flags.Lookup("shuffle") != nil && flags.Changed("shuffle") {
				cfg.Shuffle, _ = flags.GetBool("shuffle")
			}

			appCtx, err = app.NewWire(cfg)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080); empty uses an in-process relay")
	pf.Uint64Var(&maxSkip, "max-skip", 100, "most message keys skipped for a single message")
	pf.IntVar(&maxSkippedChains, "max-skipped-chains", 4, "peer ratchet keys whose skipped keys are kept (0 keeps all)")

	root.AddCommand(demoCmd(), relayCmd(), keygenCmd())
	return root
}
