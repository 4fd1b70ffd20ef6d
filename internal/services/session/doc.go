// Package session establishes and caches cryptographic sessions per ordered
// (local, peer) identity pair.
//
// Establishment and steady-state ratcheting are two phases over one state
// object: the handshake derives the root key, the ratchet engine owns it
// from then on. An existing non-expired session is reused rather than
// re-handshaken; idle sessions are torn down after a configurable TTL and
// their key material wiped.
//
// Each entry is independently lockable. There is no global lock held across
// cryptographic work, so operations on unrelated sessions proceed in
// parallel.
package session
