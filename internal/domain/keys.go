package domain

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// HybridSignature carries both signature components. An envelope is accepted
// only if both verify; partial verification is never sufficient.
type HybridSignature struct {
	Classical   []byte `json:"classical"`
	PostQuantum []byte `json:"pq"`
}

// RatchetPublic is a hybrid ratchet public key: the classical key-agreement
// half and the post-quantum encapsulation half advertised together.
type RatchetPublic struct {
	Agreement     X25519Public `json:"agreement"`
	Encapsulation []byte       `json:"encapsulation"`
}

// Equal reports whether two ratchet public keys are identical.
func (r RatchetPublic) Equal(o RatchetPublic) bool {
	if r.Agreement != o.Agreement {
		return false
	}
	if len(r.Encapsulation) != len(o.Encapsulation) {
		return false
	}
	var v byte
	for i := range r.Encapsulation {
		v |= r.Encapsulation[i] ^ o.Encapsulation[i]
	}
	return v == 0
}
