package domain

// RatchetHeader is sent alongside every ciphertext.
//
// KEMCiphertext rides on every message of the sending chain, not only the
// first, so a receiver that sees the chain's messages out of order can still
// decapsulate. Decapsulation is deterministic, so repeats are harmless.
type RatchetHeader struct {
	Public              RatchetPublic `json:"ratchet_pub"`
	KEMCiphertext       []byte        `json:"kem_ct,omitempty"`
	PreviousChainLength uint32        `json:"pn"`
	MessageNumber       uint32        `json:"n"`
}

// HandshakeInit bootstraps a responder session. It rides in outbound
// envelopes until the first message from the peer confirms the session.
type HandshakeInit struct {
	Initiator    AgentID      `json:"initiator"`
	Suite        Suite        `json:"suite"`
	AgreementKey X25519Public `json:"agreement_key"`
	EphemeralKey X25519Public `json:"ephemeral_key"`
	KEMCipher    []byte       `json:"kem_ct"`
}

// Envelope is the serialized, signed, encrypted unit exchanged between agents.
type Envelope struct {
	ID         MessageID       `json:"id"`
	Sender     AgentID         `json:"sender"`
	Recipient  AgentID         `json:"recipient"`
	Suite      Suite           `json:"suite"`
	Header     RatchetHeader   `json:"header"`
	Nonce      []byte          `json:"nonce"`
	Ciphertext []byte          `json:"ciphertext"`
	Signature  HybridSignature `json:"signature"`
	Handshake  *HandshakeInit  `json:"handshake,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// Expired reports whether the envelope's TTL has elapsed at nowUnix.
func (e Envelope) Expired(nowUnix int64) bool {
	if e.TTLSeconds <= 0 {
		return false
	}
	return nowUnix > e.Timestamp+e.TTLSeconds
}

// QueuedEnvelope pairs an envelope with its transport cursor so a consumer
// can commit its consumption offset after processing.
type QueuedEnvelope struct {
	Envelope Envelope
	Cursor   uint64
}

// DecryptedMessage is a plaintext handed back to the caller.
type DecryptedMessage struct {
	ID        MessageID
	Sender    AgentID
	Recipient AgentID
	Plaintext []byte
	Timestamp int64
	Cursor    uint64
}
