// Package ratchet implements the Double Ratchet over a hybrid DH+KEM step.
//
// The algorithm maintains a root key and two message chains (send and
// receive). Each message advances a KDF chain so that keys are forward
// secure. A ratchet step replaces the asymmetric key pair: the stepping side
// generates a fresh X25519+ML-KEM-768 pair, combines an X25519 agreement
// with an ML-KEM encapsulation against the peer's most recently observed
// ratchet public key, and derives a new root and a fresh chain key. Keys
// from before a step cannot regenerate keys from after it, and a compromise
// is healed by the next step.
//
// Steps are triggered by observing a new peer ratchet public key and, on the
// sending side, by a configurable cadence (message count and/or elapsed
// time).
//
// Out-of-order messages are served from a bounded single-use skipped-key
// cache keyed by the originating chain, so a late message from a superseded
// chain remains decryptable after further steps. A key is evicted once its
// message authenticates; redelivery of an already-decrypted ciphertext is
// rejected as a replay, and a failed open leaves the key in place. Keys
// evicted under the cache bound make their messages permanently
// undecryptable; that is a deliberate tradeoff against unbounded key
// retention.
//
// Decrypting under a previously unseen peer ratchet key mutates only a
// scratch copy of the state until the ciphertext authenticates. Consecutive
// sending chains advance the root sequentially: a receiver that saw no
// message of an intermediate chain cannot decrypt later chains and the
// session must be re-established.
//
// Concurrency: RatchetState is NOT safe for concurrent use. Callers must
// serialise access per session.
package ratchet
