// Package gate enforces delivery policy around the transport: TTL expiry,
// authorization with bounded retry, and message-id deduplication independent
// of the ratchet's own anti-replay.
//
// Every message moves through the lifecycle
//
//	Created → AuthorizationPending → (Approved → Enqueued → Delivered)
//	                               | (Denied → Rejected)
//
// with Expired reachable from any pre-delivery state. Delivered, Rejected
// and Expired are terminal.
package gate
