package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIdentityNotFound indicates the Identity Directory has no bundle for
	// the requested agent.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrHandshakeFailed indicates cryptographic validation of the key
	// exchange failed.
	ErrHandshakeFailed = errors.New("handshake failed")
	// ErrSignatureInvalid indicates at least one hybrid signature component
	// failed to verify. Partial verification is never sufficient.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrDecryptionFailed indicates the authenticated cipher rejected the
	// ciphertext. No partial plaintext is ever released.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrTooManySkipped indicates a message would require deriving more
	// intermediate keys than the configured maximum skip distance.
	ErrTooManySkipped = errors.New("too many skipped message keys")
	// ErrMessageReplayed indicates a message number behind the receive chain
	// whose key was already consumed or evicted.
	ErrMessageReplayed = errors.New("message replayed or key evicted")
	// ErrExpired indicates the envelope's TTL elapsed before delivery.
	ErrExpired = errors.New("envelope expired")
	// ErrDuplicateMessage indicates a message id already seen by the
	// delivery gate.
	ErrDuplicateMessage = errors.New("duplicate message")
	// ErrMalformedEnvelope indicates a structurally invalid envelope.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrPayloadTooLarge indicates a plaintext over the configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnknownSuite indicates a cipher suite outside the closed set.
	ErrUnknownSuite = errors.New("unknown cipher suite")
	// ErrNoSession indicates no established session exists for the peer.
	ErrNoSession = errors.New("no session with peer")
	// ErrDeliveryDenied is the target of errors.Is for DeniedError.
	ErrDeliveryDenied = errors.New("delivery denied")
)

// DeniedError carries the authorization service's denial reason. Denial is
// terminal for the message and is never retried.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("delivery denied: %s", e.Reason)
}

// Is makes errors.Is(err, ErrDeliveryDenied) succeed.
func (e *DeniedError) Is(target error) bool { return target == ErrDeliveryDenied }

// RateLimitedError carries the server-provided backoff hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
