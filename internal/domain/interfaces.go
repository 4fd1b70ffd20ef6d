package domain

import (
	"context"
	"time"
)

// Directory supplies per-agent public key bundles.
type Directory interface {
	// Bundle fetches the agent's public bundle. Returns ErrIdentityNotFound
	// if the directory has no bundle for the agent.
	Bundle(ctx context.Context, agent AgentID) (PublicBundle, error)
	// Sign asks the directory to sign bytes on behalf of a custodial agent.
	// Optional; implementations without custody return an error.
	Sign(ctx context.Context, agent AgentID, data []byte) (HybridSignature, error)
}

// Outcome is an authorization verdict.
type Outcome string

const (
	OutcomeAllow       Outcome = "allow"
	OutcomeDeny        Outcome = "deny"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Decision is the authorization service's answer to a check.
type Decision struct {
	Outcome    Outcome
	Reason     string
	RetryAfter time.Duration
}

// Authorizer is the external authorization interface consulted before
// dispatch. A non-nil error means the check itself failed (transient
// infrastructure), not that the action was denied.
type Authorizer interface {
	Check(ctx context.Context, sender, recipient AgentID, action string) (Decision, error)
}

// Transport is the at-least-once queueing adapter. Once an envelope is
// enqueued it is considered sent.
type Transport interface {
	Enqueue(ctx context.Context, env Envelope) error
	// Subscribe streams envelopes for the identity starting at cursor.
	// Cursor zero means the oldest unacknowledged envelope. The channel is
	// closed when ctx is done. Envelopes are redelivered until acknowledged.
	Subscribe(ctx context.Context, agent AgentID, cursor uint64) (<-chan QueuedEnvelope, error)
	// Ack commits the consumption offset up to and including cursor.
	Ack(agent AgentID, cursor uint64) error
	// DeadLetter parks an envelope that terminally failed processing.
	DeadLetter(env Envelope, reason string) error
}

// AuditEvent is one security-relevant occurrence.
type AuditEvent struct {
	Type    string    `json:"type"`
	Agent   AgentID   `json:"agent,omitempty"`
	Peer    AgentID   `json:"peer,omitempty"`
	Message MessageID `json:"message,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time"`
}

// AuditSink accepts events fire-and-forget; Append must never block the
// message path.
type AuditSink interface {
	Append(ev AuditEvent)
}
