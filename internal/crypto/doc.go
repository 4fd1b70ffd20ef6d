// Package crypto exposes the primitives used by agentwire.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Hybrid key encapsulation: X25519 + ML-KEM-768 mixed through
//     HKDF-SHA-256 with a transcript hash, so that breaking either primitive
//     alone does not recover the shared secret
//   - Hybrid signing: Ed25519 + ML-DSA-65, where verification requires both
//     components to validate
//   - Identity and bundle construction with self-signatures
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Classical keys use fixed-size array types defined in internal/domain to
// avoid accidental reallocations; post-quantum keys are variable-length byte
// slices in their circl binary encodings. Callers should treat returned
// secrets as sensitive and rely on memzero when practical to reduce lifetime
// in memory.
package crypto
