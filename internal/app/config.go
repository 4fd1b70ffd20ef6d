package app

import (
	"net/http"
	"time"

	"agentwire/internal/domain"
)

// Config holds runtime wiring options for building the core.
type Config struct {
	Home       string // state directory, e.g. $HOME/.agentwire
	Passphrase string // protects identity and checkpoints at rest

	// DirectoryURL selects an HTTP Identity Directory. Empty wires the
	// in-process directory, which the demo command populates itself.
	DirectoryURL string
	// AuthzURL selects an HTTP authorization service. Empty wires the
	// in-process allow-by-default authorizer.
	AuthzURL string
	HTTP     *http.Client // optional; defaults to http.DefaultClient

	// Ratchet tuning.
	MaxSkip       uint32
	SkipCacheSize int
	SkipEviction  domain.EvictionPolicy
	StepEvery     uint32
	StepInterval  time.Duration

	// Delivery tuning.
	MaxPayloadBytes int
	DefaultTTL      time.Duration
	DedupeWindow    time.Duration
	DedupeSize      int
	AuthzTimeout    time.Duration
	AuthzAttempts   int
	BackoffBase     time.Duration
	BackoffCap      time.Duration

	// Session tuning.
	SessionIdleTTL time.Duration

	LogLevel string // logrus level name; empty means "info"
}
