package gate

import (
	"fmt"
	"time"

	"agentwire/internal/domain"
)

// transitions lists the legal next states for each lifecycle state.
var transitions = map[domain.DeliveryState][]domain.DeliveryState{
	domain.StateCreated:              {domain.StateAuthorizationPending, domain.StateExpired},
	domain.StateAuthorizationPending: {domain.StateApproved, domain.StateDenied, domain.StateExpired},
	domain.StateApproved:             {domain.StateEnqueued, domain.StateExpired},
	domain.StateEnqueued:             {domain.StateDelivered, domain.StateExpired},
	domain.StateDenied:               {domain.StateRejected},
	domain.StateDelivered:            nil,
	domain.StateRejected:             nil,
	domain.StateExpired:              nil,
}

// Lifecycle tracks one message through the delivery state machine.
type Lifecycle struct {
	id    domain.MessageID
	state domain.DeliveryState
	now   func() time.Time
}

// NewLifecycle starts a message in Created.
func NewLifecycle(id domain.MessageID, now func() time.Time) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{id: id, state: domain.StateCreated, now: now}
}

// State returns the current state.
func (l *Lifecycle) State() domain.DeliveryState { return l.state }

// To moves the message to next, rejecting illegal transitions.
func (l *Lifecycle) To(next domain.DeliveryState) error {
	for _, allowed := range transitions[l.state] {
		if allowed == next {
			l.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal delivery transition %s → %s for %s", l.state, next, l.id)
}

// Receipt snapshots the current state.
func (l *Lifecycle) Receipt() domain.DeliveryReceipt {
	return domain.DeliveryReceipt{
		ID:        l.id,
		State:     l.state,
		Timestamp: l.now().Unix(),
	}
}
