package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"agentwire/internal/app"
	"agentwire/internal/crypto"
	"agentwire/internal/directory"
	"agentwire/internal/domain"
	"agentwire/internal/services/message"
	"agentwire/internal/services/session"
)

func TestWire_OpenCheckpointRestore(t *testing.T) {
	cfg := app.Config{
		Home:       t.TempDir(),
		Passphrase: "pass",
		LogLevel:   "panic",
	}
	w, err := app.NewWire(cfg)
	require.NoError(t, err)

	id, err := crypto.NewIdentity("alice")
	require.NoError(t, err)
	require.NoError(t, w.Store.SaveIdentity(id))
	require.NoError(t, w.Open(id))

	// The default in-process directory accepts registrations directly.
	dir, ok := w.Directory.(*directory.Memory)
	require.True(t, ok)
	bob, err := crypto.NewIdentity("bob")
	require.NoError(t, err)
	bundle, err := crypto.BundleFor(bob)
	require.NoError(t, err)
	dir.Publish(bundle)

	_, receipt, err := w.Messages.Send(context.Background(), "bob", []byte("hi"), message.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, domain.StateEnqueued, receipt.State)

	require.NoError(t, w.Checkpoint())
	w.Close()

	// A fresh wire over the same home restores the session registry.
	w2, err := app.NewWire(cfg)
	require.NoError(t, err)
	defer w2.Close()
	loaded, err := w2.Store.LoadIdentity()
	require.NoError(t, err)
	require.Equal(t, id.Agent, loaded.Agent)
	require.NoError(t, w2.Open(loaded))

	entry, ok := w2.Sessions.Lookup("bob")
	require.True(t, ok)
	require.NoError(t, entry.Do(func(e *session.Entry) error {
		require.Equal(t, domain.AgentID("bob"), e.Peer)
		require.NotEmpty(t, e.State.RootKey)
		return nil
	}))
}
