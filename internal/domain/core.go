package domain

// AgentID is an opaque identifier for an agent. A recipient AgentID may also
// name a topic; the messaging core does not distinguish the two.
type AgentID string

// String returns the string form of the agent identifier.
func (a AgentID) String() string { return string(a) }

// MessageID is a 128-bit message identifier in canonical UUID form.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Suite tags the cryptographic algorithm set a session was established with.
// The set is closed: a suite is chosen once at session establishment and
// recorded in session state, never re-decided per message.
type Suite uint8

const (
	// SuiteHybrid1 is X25519+ML-KEM-768 key agreement with Ed25519+ML-DSA-65
	// signing, mixed through HKDF-SHA-256 and sealed with ChaCha20-Poly1305.
	SuiteHybrid1 Suite = 1
)

// EvictionPolicy selects how the skipped-key cache evicts under pressure.
type EvictionPolicy string

const (
	// EvictFIFO drops the oldest cached key regardless of chain activity.
	EvictFIFO EvictionPolicy = "fifo"
	// EvictLRU keeps keys of chains that are still receiving messages warm
	// and drops keys of stale chains first.
	EvictLRU EvictionPolicy = "lru"
)
