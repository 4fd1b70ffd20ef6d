package domain

// DeliveryState is a message's position in the delivery lifecycle.
type DeliveryState string

const (
	StateCreated              DeliveryState = "created"
	StateAuthorizationPending DeliveryState = "authorization_pending"
	StateApproved             DeliveryState = "approved"
	StateEnqueued             DeliveryState = "enqueued"
	StateDelivered            DeliveryState = "delivered"
	StateDenied               DeliveryState = "denied"
	StateRejected             DeliveryState = "rejected"
	StateExpired              DeliveryState = "expired"
)

// Terminal reports whether no further transition is possible.
func (s DeliveryState) Terminal() bool {
	switch s {
	case StateDelivered, StateRejected, StateExpired:
		return true
	}
	return false
}

// DeliveryReceipt records the outcome of one message.
type DeliveryReceipt struct {
	ID        MessageID     `json:"id"`
	State     DeliveryState `json:"state"`
	Timestamp int64         `json:"timestamp"`
}
