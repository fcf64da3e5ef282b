package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"drat/internal/crypto"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh X25519 key pair and its fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := crypto.GenerateX25519()
			if err != nil {
				return err
			}
			defer priv.Wipe()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Private:     %s\n", hex.EncodeToString(priv[:]))
			fmt.Fprintf(out, "Public:      %s\n", pub)
			fmt.Fprintf(out, "Fingerprint: %s\n", crypto.Fingerprint(pub))
			return nil
		},
	}
}
