package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List checkpointed sessions for the local identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.Store.LoadIdentity()
			if err != nil {
				return err
			}
			if err := wire.Open(id); err != nil {
				return err
			}
			snaps := wire.Sessions.Snapshot()
			if len(snaps) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, s := range snaps {
				state := "pending"
				if s.Confirmed {
					state = "confirmed"
				}
				fmt.Printf("%-24s %-9s established %s\n",
					s.Peer, state, time.Unix(s.CreatedUnix, 0).Format(time.RFC3339))
			}
			return wire.Checkpoint()
		},
	}
}
