// Package transport provides the in-memory queueing adapter used by tests
// and the demo. Delivery is at-least-once: envelopes stay queued and are
// redelivered to new subscriptions until their cursor is acknowledged.
// Terminal failures are parked in a dead-letter list.
//
// The domain.Transport interface is the integration point for a real broker.
package transport
