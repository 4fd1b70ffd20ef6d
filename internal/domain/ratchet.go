package domain

// RatchetState contains all fields the ratchet needs to track for one
// session. Root and chain keys exist only in process memory; checkpoint
// persistence encrypts the whole state at rest.
type RatchetState struct {
	Suite   Suite  `json:"suite"`
	RootKey []byte `json:"root_key"`

	// Our current ratchet key pair. The private halves are retained until
	// our next send-side step replaces them; the peer only ever steps
	// against a public key it observed in our headers.
	Public            RatchetPublic `json:"public"`
	AgreementPriv     X25519Private `json:"agreement_priv"`
	EncapsulationPriv []byte        `json:"encapsulation_priv"`

	// Latest ratchet public key observed from the peer.
	PeerPublic RatchetPublic `json:"peer_public"`

	// KEM ciphertext attached to every header of the current sending chain.
	PendingKEMCipher []byte `json:"pending_kem_ct,omitempty"`

	SendChainKey        []byte `json:"send_ck,omitempty"`
	RecvChainKey        []byte `json:"recv_ck,omitempty"`
	SendCount           uint32 `json:"ns"`
	RecvCount           uint32 `json:"nr"`
	PreviousChainLength uint32 `json:"pn"`
	LastStepUnix        int64  `json:"last_step_unix"`

	// Skipped message keys for out-of-order delivery, keyed by
	// (peer ratchet key fingerprint, message number). SkippedOrder records
	// insertion order so eviction is deterministic.
	Skipped      map[string][]byte `json:"skipped"`
	SkippedOrder []string          `json:"skipped_order"`
}

// Clone deep-copies the state. Snapshots must not share backing arrays with
// the live session, whose keys are zeroed in place as the ratchet advances.
func (s RatchetState) Clone() RatchetState {
	cp := s
	cp.RootKey = append([]byte(nil), s.RootKey...)
	cp.Public.Encapsulation = append([]byte(nil), s.Public.Encapsulation...)
	cp.EncapsulationPriv = append([]byte(nil), s.EncapsulationPriv...)
	cp.PeerPublic.Encapsulation = append([]byte(nil), s.PeerPublic.Encapsulation...)
	cp.PendingKEMCipher = append([]byte(nil), s.PendingKEMCipher...)
	cp.SendChainKey = append([]byte(nil), s.SendChainKey...)
	cp.RecvChainKey = append([]byte(nil), s.RecvChainKey...)
	cp.Skipped = make(map[string][]byte, len(s.Skipped))
	for k, v := range s.Skipped {
		cp.Skipped[k] = append([]byte(nil), v...)
	}
	cp.SkippedOrder = append([]string(nil), s.SkippedOrder...)
	return cp
}
