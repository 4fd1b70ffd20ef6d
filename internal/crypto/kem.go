package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"

	"agentwire/internal/util/memzero"
)

// SharedSecretSize is the size of the mixed hybrid agreement output.
const SharedSecretSize = 32

func kemScheme() kem.Scheme { return mlkem768.Scheme() }

// GenerateKEM returns a fresh ML-KEM-768 key pair in binary encoding.
func GenerateKEM() (pub, priv []byte, err error) {
	pk, sk, err := kemScheme().GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	priv, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// Encapsulate produces a KEM ciphertext and shared secret against pub.
func Encapsulate(pub []byte) (ct, secret []byte, err error) {
	pk, err := kemScheme().UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("parse encapsulation key: %w", err)
	}
	return kemScheme().Encapsulate(pk)
}

// Decapsulate recovers the shared secret from ct using priv.
func Decapsulate(priv, ct []byte) ([]byte, error) {
	sk, err := kemScheme().UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("parse decapsulation key: %w", err)
	}
	return kemScheme().Decapsulate(sk, ct)
}

// MixSecrets folds the classical DH outputs, the KEM shared secret and a
// transcript hash into one secret. Either family alone contributes full
// entropy, so both must be broken to recover the output.
func MixSecrets(label string, transcript []byte, secrets ...[]byte) []byte {
	ikm := make([]byte, 0, len(secrets)*32+len(transcript))
	for _, s := range secrets {
		ikm = append(ikm, s...)
	}
	ikm = append(ikm, transcript...)
	r := hkdf.New(sha256.New, ikm, nil, []byte(label))
	out := make([]byte, SharedSecretSize)
	_, _ = io.ReadFull(r, out)
	memzero.Zero(ikm)
	return out
}

// Transcript hashes the public values of an exchange for domain binding.
func Transcript(parts ...[]byte) []byte {
	h := sha256.New()
	var n [4]byte
	for _, p := range parts {
		n[0] = byte(len(p) >> 24)
		n[1] = byte(len(p) >> 16)
		n[2] = byte(len(p) >> 8)
		n[3] = byte(len(p))
		h.Write(n[:])
		h.Write(p)
	}
	return h.Sum(nil)
}

// KEMCiphertextSize returns the wire size of an ML-KEM-768 ciphertext.
func KEMCiphertextSize() int { return kemScheme().CiphertextSize() }

// KEMPublicKeySize returns the wire size of an ML-KEM-768 public key.
func KEMPublicKeySize() int { return kemScheme().PublicKeySize() }
