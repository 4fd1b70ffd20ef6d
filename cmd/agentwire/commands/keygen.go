package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <agent-id>",
		Short: "Generate a hybrid identity and store it encrypted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if wire.Store.HasIdentity() {
				return fmt.Errorf("identity already exists under %s", home)
			}
			id, err := crypto.NewIdentity(domain.AgentID(args[0]))
			if err != nil {
				return err
			}
			if err := wire.Store.SaveIdentity(id); err != nil {
				return err
			}
			fmt.Printf("Identity created for %s.\nSigning fingerprint: %s\n",
				id.Agent, crypto.Fingerprint(id.SigningPub.Slice()))
			return nil
		},
	}
}
