package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentwire/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local identity's key fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.Store.LoadIdentity()
			if err != nil {
				return err
			}
			fmt.Printf("Agent:         %s\n", id.Agent)
			fmt.Printf("Agreement:     %s\n", crypto.Fingerprint(id.AgreementPub.Slice()))
			fmt.Printf("Encapsulation: %s\n", crypto.Fingerprint(id.EncapsulationPub))
			fmt.Printf("Signing:       %s\n", crypto.Fingerprint(id.SigningPub.Slice()))
			fmt.Printf("PQ signing:    %s\n", crypto.Fingerprint(id.PQSigningPub))
			return nil
		},
	}
}
