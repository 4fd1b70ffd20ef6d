package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"agentwire/internal/audit"
	"agentwire/internal/domain"
	"agentwire/internal/gate"
	"agentwire/internal/transport"
)

// scriptedAuthz returns its responses in order, repeating the last one.
type scriptedAuthz struct {
	mu        sync.Mutex
	responses []func() (domain.Decision, error)
	calls     int
}

func (s *scriptedAuthz) Check(context.Context, domain.AgentID, domain.AgentID, string) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i]()
}

func (s *scriptedAuthz) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func allow() (domain.Decision, error) {
	return domain.Decision{Outcome: domain.OutcomeAllow}, nil
}

func deny(reason string) func() (domain.Decision, error) {
	return func() (domain.Decision, error) {
		return domain.Decision{Outcome: domain.OutcomeDeny, Reason: reason}, nil
	}
}

func unavailable() (domain.Decision, error) {
	return domain.Decision{}, errors.New("authz endpoint unreachable")
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func newGate(t *testing.T, cfg gate.Config, authz domain.Authorizer) (*gate.Gate, *transport.Memory) {
	t.Helper()
	bus := transport.NewMemory()
	g := gate.New(cfg, authz, bus, audit.Noop{}, testLog())
	t.Cleanup(g.Close)
	return g, bus
}

func testEnv(id domain.MessageID) domain.Envelope {
	return domain.Envelope{
		ID:        id,
		Sender:    "alice",
		Recipient: "bob",
		Timestamp: time.Now().Unix(),
	}
}

func TestGate_Allow_Enqueues(t *testing.T) {
	g, bus := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){allow}})

	receipt, err := g.Submit(context.Background(), testEnv("m1"))
	require.NoError(t, err)
	require.Equal(t, domain.StateEnqueued, receipt.State)
	require.Equal(t, 1, bus.Depth("bob"))
}

func TestGate_Deny_NothingEnqueued(t *testing.T) {
	g, bus := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){deny("not on allowlist")}})

	receipt, err := g.Submit(context.Background(), testEnv("m1"))
	require.ErrorIs(t, err, domain.ErrDeliveryDenied)

	var denied *domain.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "not on allowlist", denied.Reason)
	require.Equal(t, domain.StateRejected, receipt.State)
	require.Zero(t, bus.Depth("bob"))
}

func TestGate_ExpiredBeforeSubmit(t *testing.T) {
	g, bus := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){allow}})

	env := testEnv("m1")
	env.Timestamp = time.Now().Unix() - 31
	env.TTLSeconds = 30

	receipt, err := g.Submit(context.Background(), env)
	require.ErrorIs(t, err, domain.ErrExpired)
	require.Equal(t, domain.StateExpired, receipt.State)
	require.Zero(t, bus.Depth("bob"))
}

func TestGate_TransientAuthzFailure_RetriedThenAllowed(t *testing.T) {
	authz := &scriptedAuthz{responses: []func() (domain.Decision, error){unavailable, unavailable, allow}}
	g, bus := newGate(t, gate.Config{BackoffBase: time.Millisecond, BackoffCap: 2 * time.Millisecond}, authz)

	_, err := g.Submit(context.Background(), testEnv("m1"))
	require.NoError(t, err)
	require.Equal(t, 3, authz.callCount())
	require.Equal(t, 1, bus.Depth("bob"))
}

func TestGate_AuthzUnavailable_FailsClosed(t *testing.T) {
	authz := &scriptedAuthz{responses: []func() (domain.Decision, error){unavailable}}
	g, bus := newGate(t, gate.Config{AuthzAttempts: 3, BackoffBase: time.Millisecond, BackoffCap: 2 * time.Millisecond}, authz)

	_, err := g.Submit(context.Background(), testEnv("m1"))
	require.Error(t, err)
	require.Equal(t, 3, authz.callCount())
	require.Zero(t, bus.Depth("bob"))
}

func TestGate_RateLimited_HonoursRetryAfter(t *testing.T) {
	rateLimited := func() (domain.Decision, error) {
		return domain.Decision{Outcome: domain.OutcomeRateLimited, RetryAfter: time.Millisecond}, nil
	}
	authz := &scriptedAuthz{responses: []func() (domain.Decision, error){rateLimited, allow}}
	g, bus := newGate(t, gate.Config{BackoffBase: time.Millisecond}, authz)

	_, err := g.Submit(context.Background(), testEnv("m1"))
	require.NoError(t, err)
	require.Equal(t, 2, authz.callCount())
	require.Equal(t, 1, bus.Depth("bob"))
}

func TestGate_CancelledContext_NoEnqueue(t *testing.T) {
	g, bus := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){allow}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Submit(ctx, testEnv("m1"))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, bus.Depth("bob"))
}

func TestGate_Admit_DuplicateRejected(t *testing.T) {
	g, _ := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){allow}})

	env := testEnv("m1")
	require.NoError(t, g.Admit(env))
	require.ErrorIs(t, g.Admit(env), domain.ErrDuplicateMessage)

	// A different id is unaffected.
	require.NoError(t, g.Admit(testEnv("m2")))
}

func TestGate_Admit_Expired(t *testing.T) {
	g, _ := newGate(t, gate.Config{}, &scriptedAuthz{responses: []func() (domain.Decision, error){allow}})

	env := testEnv("m1")
	env.Timestamp = time.Now().Unix() - 120
	env.TTLSeconds = 60
	require.ErrorIs(t, g.Admit(env), domain.ErrExpired)
}

func TestLifecycle_LegalPath(t *testing.T) {
	lc := gate.NewLifecycle("m1", nil)
	for _, next := range []domain.DeliveryState{
		domain.StateAuthorizationPending,
		domain.StateApproved,
		domain.StateEnqueued,
		domain.StateDelivered,
	} {
		require.NoError(t, lc.To(next))
	}
	require.True(t, lc.State().Terminal())
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	lc := gate.NewLifecycle("m1", nil)
	require.Error(t, lc.To(domain.StateDelivered))
	require.Error(t, lc.To(domain.StateApproved))

	require.NoError(t, lc.To(domain.StateAuthorizationPending))
	require.NoError(t, lc.To(domain.StateDenied))
	require.NoError(t, lc.To(domain.StateRejected))
	// Terminal states accept nothing further.
	require.Error(t, lc.To(domain.StateEnqueued))
}
