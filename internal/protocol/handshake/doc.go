// Package handshake derives the initial root key for a session.
//
// The exchange is hybrid: two X25519 agreements (long-term/long-term and
// ephemeral/long-term) and one ML-KEM-768 encapsulation are mixed through
// HKDF together with a transcript hash of every public value. Breaking
// either the classical or the post-quantum primitive alone does not
// compromise the session.
//
// The initiator's side produces a HandshakeInit block that rides in outbound
// envelopes until the responder confirms the session; the responder derives
// the same root from that block and its own private keys.
package handshake
