package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"agentwire/internal/domain"
)

func pqScheme() sign.Scheme { return mldsa65.Scheme() }

// GenerateEd25519 returns a new Ed25519 signing key pair.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// GeneratePQSigning returns a new ML-DSA-65 signing key pair in binary
// encoding.
func GeneratePQSigning() (pub, priv []byte, err error) {
	pk, sk, err := pqScheme().GenerateKey()
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

// SignHybrid signs msg with both signing keys.
func SignHybrid(edPriv domain.Ed25519Private, pqPriv []byte, msg []byte) (domain.HybridSignature, error) {
	sk, err := pqScheme().UnmarshalBinaryPrivateKey(pqPriv)
	if err != nil {
		return domain.HybridSignature{}, fmt.Errorf("parse pq signing key: %w", err)
	}
	return domain.HybridSignature{
		Classical:   ed25519.Sign(ed25519.PrivateKey(edPriv[:]), msg),
		PostQuantum: pqScheme().Sign(sk, msg, nil),
	}, nil
}

// VerifyHybrid reports whether BOTH signature components validate. A missing
// or invalid component of either family fails the whole signature.
func VerifyHybrid(edPub domain.Ed25519Public, pqPub []byte, msg []byte, sig domain.HybridSignature) bool {
	if len(sig.Classical) == 0 || len(sig.PostQuantum) == 0 {
		return false
	}
	if !ed25519.Verify(ed25519.PublicKey(edPub[:]), msg, sig.Classical) {
		return false
	}
	pk, err := pqScheme().UnmarshalBinaryPublicKey(pqPub)
	if err != nil {
		return false
	}
	return pqScheme().Verify(pk, msg, sig.PostQuantum, nil)
}

// PQSignatureSize returns the wire size of an ML-DSA-65 signature.
func PQSignatureSize() int { return pqScheme().SignatureSize() }
