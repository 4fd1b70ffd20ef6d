// Package envelope encodes and decodes the wire unit exchanged between
// agents: authenticated encryption via the ratchet engine plus a hybrid
// signature over the full header, ciphertext and metadata.
//
// Decode is fail-closed: both signature components must verify before any
// key derivation or decryption happens, and an authentication failure on the
// cipher never releases partial plaintext.
package envelope
