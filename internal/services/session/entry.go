package session

import (
	"sync"

	"agentwire/internal/domain"
	"agentwire/internal/util/memzero"
)

// Entry is one session: the ratchet state plus the peer's signing keys.
// All access goes through Do, which serialises operations on this session
// without blocking any other.
type Entry struct {
	mu sync.Mutex

	Local domain.AgentID
	Peer  domain.AgentID
	Suite domain.Suite

	PeerSigning   domain.Ed25519Public
	PeerPQSigning []byte

	State domain.RatchetState

	// PendingInit rides in outbound envelopes until the peer's first
	// message confirms the session.
	PendingInit *domain.HandshakeInit
	Confirmed   bool

	CreatedUnix  int64
	lastUsedUnix int64
}

// Do runs fn with exclusive access to the entry.
func (e *Entry) Do(fn func(*Entry) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

// touch records activity for idle-TTL accounting. Callers hold e.mu.
func (e *Entry) touch(nowUnix int64) { e.lastUsedUnix = nowUnix }

// idleSince reports the last-activity timestamp.
func (e *Entry) idleSince() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsedUnix
}

// wipe zeroes the entry's key material on teardown.
func (e *Entry) wipe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := &e.State
	memzero.ZeroAll(st.RootKey, st.SendChainKey, st.RecvChainKey, st.EncapsulationPriv)
	memzero.Zero(st.AgreementPriv[:])
	for k, mk := range st.Skipped {
		memzero.Zero(mk)
		delete(st.Skipped, k)
	}
	st.SkippedOrder = nil
}

// EntrySnapshot is the serialisable form of an entry for checkpointing.
type EntrySnapshot struct {
	Peer          domain.AgentID        `json:"peer"`
	Suite         domain.Suite          `json:"suite"`
	PeerSigning   domain.Ed25519Public  `json:"peer_signing"`
	PeerPQSigning []byte                `json:"peer_pq_signing"`
	State         domain.RatchetState   `json:"state"`
	PendingInit   *domain.HandshakeInit `json:"pending_init,omitempty"`
	Confirmed     bool                  `json:"confirmed"`
	CreatedUnix   int64                 `json:"created_unix"`
}
