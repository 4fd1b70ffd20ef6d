package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"agentwire/internal/app"
	"agentwire/internal/audit"
	"agentwire/internal/authz"
	"agentwire/internal/crypto"
	"agentwire/internal/directory"
	"agentwire/internal/domain"
	"agentwire/internal/services/message"
	"agentwire/internal/transport"
)

// demo runs two agents end to end in one process: handshake, a short
// conversation in both directions, and a denied pair to show the gate.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run two in-process agents through a full exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func runDemo(ctx context.Context) error {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	sink := audit.NewLog(log.WithField("component", "audit"))
	defer sink.Close()

	dir := directory.NewMemory()
	rules := authz.NewMemory()
	bus := transport.NewMemory()

	mk := func(name domain.AgentID) (*app.Core, error) {
		id, err := crypto.NewIdentity(name)
		if err != nil {
			return nil, err
		}
		bundle, err := crypto.BundleFor(id)
		if err != nil {
			return nil, err
		}
		dir.Publish(bundle)
		return app.NewCore(app.CoreDeps{
			Identity:  id,
			Directory: dir,
			Authz:     rules,
			Transport: bus,
			Audit:     sink,
			Log:       log,
		})
	}

	alice, err := mk("alice")
	if err != nil {
		return err
	}
	defer alice.Sessions.Close()
	bob, err := mk("bob")
	if err != nil {
		return err
	}
	defer bob.Sessions.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	inbox, err := bob.Messages.Receive(ctx, 0)
	if err != nil {
		return err
	}

	for i := 1; i <= 3; i++ {
		text := fmt.Sprintf("hello bob #%d", i)
		id, _, err := alice.Messages.Send(ctx, "bob", []byte(text), message.SendOptions{})
		if err != nil {
			return err
		}
		fmt.Printf("alice -> bob  %s  (%s)\n", text, id)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-inbox:
			fmt.Printf("bob received  %q from %s\n", msg.Plaintext, msg.Sender)
			if err := bob.Messages.Acknowledge(msg.Cursor); err != nil {
				return err
			}
		}
	}

	// The reply rides the responder's own sending chain; no second handshake.
	replies, err := alice.Messages.Receive(ctx, 0)
	if err != nil {
		return err
	}
	if _, _, err := bob.Messages.Send(ctx, "alice", []byte("hello alice"), message.SendOptions{}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case msg := <-replies:
		fmt.Printf("alice received  %q from %s\n", msg.Plaintext, msg.Sender)
	}

	rules.Deny("alice", "mallory", "recipient not on allowlist")
	if err := dir.Custody(mustIdentity("mallory")); err != nil {
		return err
	}
	_, _, err = alice.Messages.Send(ctx, "mallory", []byte("psst"), message.SendOptions{})
	var denied *domain.DeniedError
	if errors.As(err, &denied) {
		fmt.Printf("alice -> mallory denied: %s\n", denied.Reason)
		return nil
	}
	return fmt.Errorf("expected denial, got %v", err)
}

func mustIdentity(name domain.AgentID) domain.Identity {
	id, err := crypto.NewIdentity(name)
	if err != nil {
		panic(err)
	}
	return id
}
