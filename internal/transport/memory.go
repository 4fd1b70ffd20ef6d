package transport

import (
	"context"
	"sync"

	"agentwire/internal/domain"
)

// DeadLetter is a terminally failed envelope with the reason it was parked.
type DeadLetter struct {
	Envelope domain.Envelope
	Reason   string
}

type inbox struct {
	// entries holds queued envelopes; entries[i] has cursor base+i+1.
	entries []domain.Envelope
	// base is the highest acknowledged cursor.
	base uint64
	// next is the cursor the next enqueued envelope receives.
	next uint64
}

// Memory is an in-process at-least-once queue keyed by recipient identity.
type Memory struct {
	mu      sync.Mutex
	inboxes map[domain.AgentID]*inbox
	wake    map[domain.AgentID]chan struct{}
	dead    []DeadLetter
}

// NewMemory returns an empty broker.
func NewMemory() *Memory {
	return &Memory{
		inboxes: make(map[domain.AgentID]*inbox),
		wake:    make(map[domain.AgentID]chan struct{}),
	}
}

var _ domain.Transport = (*Memory)(nil)

func (m *Memory) inboxFor(agent domain.AgentID) *inbox {
	ib, ok := m.inboxes[agent]
	if !ok {
		ib = &inbox{}
		m.inboxes[agent] = ib
	}
	return ib
}

// Enqueue appends the envelope to the recipient's inbox and wakes
// subscribers.
func (m *Memory) Enqueue(_ context.Context, env domain.Envelope) error {
	m.mu.Lock()
	ib := m.inboxFor(env.Recipient)
	ib.next++
	ib.entries = append(ib.entries, env)
	if ch, ok := m.wake[env.Recipient]; ok {
		close(ch)
		delete(m.wake, env.Recipient)
	}
	m.mu.Unlock()
	return nil
}

// Subscribe streams the agent's envelopes starting after cursor; cursor zero
// resumes from the oldest unacknowledged entry. Unacknowledged envelopes are
// replayed to every new subscription.
func (m *Memory) Subscribe(ctx context.Context, agent domain.AgentID, cursor uint64) (<-chan domain.QueuedEnvelope, error) {
	out := make(chan domain.QueuedEnvelope)
	go func() {
		defer close(out)
		pos := cursor
		for {
			m.mu.Lock()
			ib := m.inboxFor(agent)
			if pos < ib.base {
				pos = ib.base
			}
			var batch []domain.QueuedEnvelope
			first := ib.next - uint64(len(ib.entries))
			for i, env := range ib.entries {
				c := first + uint64(i) + 1
				if c > pos {
					batch = append(batch, domain.QueuedEnvelope{Envelope: env, Cursor: c})
				}
			}
			var wakeCh chan struct{}
			if len(batch) == 0 {
				wakeCh = m.wake[agent]
				if wakeCh == nil {
					wakeCh = make(chan struct{})
					m.wake[agent] = wakeCh
				}
			}
			m.mu.Unlock()

			if len(batch) == 0 {
				select {
				case <-ctx.Done():
					return
				case <-wakeCh:
					continue
				}
			}
			for _, qe := range batch {
				select {
				case <-ctx.Done():
					return
				case out <- qe:
					pos = qe.Cursor
				}
			}
		}
	}()
	return out, nil
}

// Ack commits the consumption offset: everything up to and including cursor
// is dropped and will not be redelivered.
func (m *Memory) Ack(agent domain.AgentID, cursor uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ib := m.inboxFor(agent)
	if cursor <= ib.base {
		return nil
	}
	first := ib.next - uint64(len(ib.entries))
	drop := int(cursor - first)
	if drop > len(ib.entries) {
		drop = len(ib.entries)
	}
	if drop > 0 {
		ib.entries = append([]domain.Envelope(nil), ib.entries[drop:]...)
	}
	ib.base = cursor
	return nil
}

// DeadLetter parks an envelope that terminally failed processing.
func (m *Memory) DeadLetter(env domain.Envelope, reason string) error {
	m.mu.Lock()
	m.dead = append(m.dead, DeadLetter{Envelope: env, Reason: reason})
	m.mu.Unlock()
	return nil
}

// DeadLetters returns a copy of the dead-letter list.
func (m *Memory) DeadLetters() []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeadLetter(nil), m.dead...)
}

// Depth reports how many envelopes are queued for the agent.
func (m *Memory) Depth(agent domain.AgentID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inboxFor(agent).entries)
}
