package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
)

func TestKEM_RoundTrip(t *testing.T) {
	pub, priv, err := crypto.GenerateKEM()
	require.NoError(t, err)

	ct, ss1, err := crypto.Encapsulate(pub)
	require.NoError(t, err)
	require.Len(t, ct, crypto.KEMCiphertextSize())

	ss2, err := crypto.Decapsulate(priv, ct)
	require.NoError(t, err)
	require.Equal(t, ss1, ss2)
}

func TestKEM_CorruptCiphertext_DifferentSecret(t *testing.T) {
	pub, priv, err := crypto.GenerateKEM()
	require.NoError(t, err)

	ct, ss1, err := crypto.Encapsulate(pub)
	require.NoError(t, err)

	// ML-KEM decapsulation is implicit-rejection: a corrupted ciphertext
	// yields a different secret rather than an error.
	ct[0] ^= 0x01
	ss2, err := crypto.Decapsulate(priv, ct)
	require.NoError(t, err)
	require.NotEqual(t, ss1, ss2)
}

func TestHybridSignature_RoundTrip(t *testing.T) {
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	pqPub, pqPriv, err := crypto.GeneratePQSigning()
	require.NoError(t, err)

	msg := []byte("attested payload")
	sig, err := crypto.SignHybrid(edPriv, pqPriv, msg)
	require.NoError(t, err)
	require.True(t, crypto.VerifyHybrid(edPub, pqPub, msg, sig))
}

func TestHybridSignature_EitherComponentInvalid_Rejects(t *testing.T) {
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	pqPub, pqPriv, err := crypto.GeneratePQSigning()
	require.NoError(t, err)

	msg := []byte("attested payload")
	sig, err := crypto.SignHybrid(edPriv, pqPriv, msg)
	require.NoError(t, err)

	bad := sig
	bad.Classical = append([]byte(nil), sig.Classical...)
	bad.Classical[3] ^= 0x80
	require.False(t, crypto.VerifyHybrid(edPub, pqPub, msg, bad))

	bad = sig
	bad.PostQuantum = append([]byte(nil), sig.PostQuantum...)
	bad.PostQuantum[3] ^= 0x80
	require.False(t, crypto.VerifyHybrid(edPub, pqPub, msg, bad))

	require.False(t, crypto.VerifyHybrid(edPub, pqPub, []byte("other payload"), sig))
}

func TestBundle_SelfSignature(t *testing.T) {
	id, err := crypto.NewIdentity("alice")
	require.NoError(t, err)

	bundle, err := crypto.BundleFor(id)
	require.NoError(t, err)
	require.True(t, crypto.VerifyBundle(bundle))

	tampered := bundle
	tampered.Agent = domain.AgentID("mallory")
	require.False(t, crypto.VerifyBundle(tampered))

	tampered = bundle
	tampered.EncapsulationKey = append([]byte(nil), bundle.EncapsulationKey...)
	tampered.EncapsulationKey[0] ^= 0x01
	require.False(t, crypto.VerifyBundle(tampered))
}

func TestTranscript_LengthPrefixing(t *testing.T) {
	// Shifting a byte across a field boundary must change the digest.
	a := crypto.Transcript([]byte("ab"), []byte("c"))
	b := crypto.Transcript([]byte("a"), []byte("bc"))
	require.NotEqual(t, a, b)
}

func TestDH_SharedSecretAgreement(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bPriv, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	s1, err := crypto.DH(aPriv, bPub)
	require.NoError(t, err)
	s2, err := crypto.DH(bPriv, aPub)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}
