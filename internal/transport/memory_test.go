package transport_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentwire/internal/domain"
	"agentwire/internal/transport"
)

func env(id domain.MessageID, recipient domain.AgentID) domain.Envelope {
	return domain.Envelope{ID: id, Sender: "alice", Recipient: recipient}
}

func collect(t *testing.T, ch <-chan domain.QueuedEnvelope, n int) []domain.QueuedEnvelope {
	t.Helper()
	out := make([]domain.QueuedEnvelope, 0, n)
	deadline := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case qe := <-ch:
			out = append(out, qe)
		case <-deadline:
			t.Fatalf("timed out after %d of %d envelopes", len(out), n)
		}
	}
	return out
}

func TestMemory_EnqueueSubscribe_InOrder(t *testing.T) {
	bus := transport.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 1; i <= 3; i++ {
		require.NoError(t, bus.Enqueue(ctx, env(domain.MessageID(fmt.Sprintf("m%d", i)), "bob")))
	}

	ch, err := bus.Subscribe(ctx, "bob", 0)
	require.NoError(t, err)
	got := collect(t, ch, 3)
	for i, qe := range got {
		require.Equal(t, domain.MessageID(fmt.Sprintf("m%d", i+1)), qe.Envelope.ID)
		require.Equal(t, uint64(i+1), qe.Cursor)
	}
}

func TestMemory_SubscriberWokenByEnqueue(t *testing.T) {
	bus := transport.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "bob", 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = bus.Enqueue(ctx, env("late", "bob"))
	}()

	got := collect(t, ch, 1)
	require.Equal(t, domain.MessageID("late"), got[0].Envelope.ID)
}

func TestMemory_UnackedRedeliveredToNewSubscription(t *testing.T) {
	bus := transport.NewMemory()
	ctx := context.Background()
	require.NoError(t, bus.Enqueue(ctx, env("m1", "bob")))
	require.NoError(t, bus.Enqueue(ctx, env("m2", "bob")))

	sub1, cancel1 := context.WithCancel(ctx)
	ch, err := bus.Subscribe(sub1, "bob", 0)
	require.NoError(t, err)
	got := collect(t, ch, 2)
	require.NoError(t, bus.Ack("bob", got[0].Cursor))
	cancel1()

	// Only m2 was left unacknowledged.
	sub2, cancel2 := context.WithCancel(ctx)
	defer cancel2()
	ch, err = bus.Subscribe(sub2, "bob", 0)
	require.NoError(t, err)
	got = collect(t, ch, 1)
	require.Equal(t, domain.MessageID("m2"), got[0].Envelope.ID)
}

func TestMemory_AckAll_QueueDrains(t *testing.T) {
	bus := transport.NewMemory()
	ctx := context.Background()
	require.NoError(t, bus.Enqueue(ctx, env("m1", "bob")))
	require.NoError(t, bus.Enqueue(ctx, env("m2", "bob")))

	sub, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := bus.Subscribe(sub, "bob", 0)
	require.NoError(t, err)
	got := collect(t, ch, 2)

	require.NoError(t, bus.Ack("bob", got[1].Cursor))
	require.Zero(t, bus.Depth("bob"))
	// Re-acking an older cursor is a no-op.
	require.NoError(t, bus.Ack("bob", got[0].Cursor))
	require.Zero(t, bus.Depth("bob"))
}

func TestMemory_PerRecipientIsolation(t *testing.T) {
	bus := transport.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Enqueue(ctx, env("m1", "bob")))
	require.NoError(t, bus.Enqueue(ctx, env("m2", "carol")))

	ch, err := bus.Subscribe(ctx, "carol", 0)
	require.NoError(t, err)
	got := collect(t, ch, 1)
	require.Equal(t, domain.MessageID("m2"), got[0].Envelope.ID)
	require.Equal(t, 1, bus.Depth("bob"))
}

func TestMemory_DeadLetter(t *testing.T) {
	bus := transport.NewMemory()
	require.NoError(t, bus.DeadLetter(env("bad", "bob"), "signature_invalid"))

	dead := bus.DeadLetters()
	require.Len(t, dead, 1)
	require.Equal(t, domain.MessageID("bad"), dead[0].Envelope.ID)
	require.Equal(t, "signature_invalid", dead[0].Reason)
}
