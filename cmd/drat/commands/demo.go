package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"drat/internal/domain"
	"drat/internal/session"
)

func demoCmd() *cobra.Command {
	var (
		initiator string
		responder string
		ad        string
	)
	cmd := &cobra.Command{
		Use:   "demo [a:text | b:text]...",
		Short: "Play a scripted conversation between two sessions",
		Long: "Bootstraps two sessions from a random shared secret and passes each\n" +
			"message through the relay. Steps prefixed a: are sent by the initiator,\n" +
			"b: by the responder. With no steps a built-in script is played.",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := session.DefaultScript
			if len(args) > 0 {
				steps = make([]session.Step, 0, len(args))
				for _, a := range args {
					st, err := session.ParseStep(a)
					if err != nil {
						return err
					}
					steps = append(steps, st)
				}
			}

			a, b, err := appCtx.NewPair(domain.Username(initiator), domain.Username(responder))
			if err != nil {
				return err
			}
			defer a.Close()
			defer b.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Processing messages...")
			err = session.Exchange(cmd.Context(), appCtx.Relay, a, b, steps, []byte(ad),
				func(d session.Delivery) {
					if d.Received {
						fmt.Fprintf(out, "%s receives: %q\n", title(d.To), d.Plaintext)
						return
					}
					fmt.Fprintf(out, "%s sends: %q\n", title(d.From), d.Plaintext)
				})
			if err != nil {
				return err
			}
			appCtx.Logger.Info().
				Int("messages", len(steps)).
				Str("initiator_session", a.ID().String()).
				Str("responder_session", b.ID().String()).
				Msg("demo finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&initiator, "initiator", "alice", "initiator username")
	cmd.Flags().StringVar(&responder, "responder", "bob", "responder username")
	cmd.Flags().StringVar(&ad, "ad", "Empty AD", "associated data bound to every message")
	cmd.Flags().Bool("shuffle", false, "deliver each batch in random order (in-process relay only)")
	return cmd
}

func title(u domain.Username) string {
	s := u.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
