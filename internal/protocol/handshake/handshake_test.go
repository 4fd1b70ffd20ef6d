package handshake_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
	"agentwire/internal/protocol/handshake"
)

func makeParty(t *testing.T, name domain.AgentID) (domain.Identity, domain.PublicBundle) {
	t.Helper()
	id, err := crypto.NewIdentity(name)
	require.NoError(t, err)
	bundle, err := crypto.BundleFor(id)
	require.NoError(t, err)
	return id, bundle
}

func TestHandshake_BothSidesDeriveSameRoot(t *testing.T) {
	alice, _ := makeParty(t, "alice")
	bob, bobBundle := makeParty(t, "bob")

	root, init, err := handshake.InitiatorRoot(alice, bobBundle)
	require.NoError(t, err)
	require.Len(t, root, crypto.SharedSecretSize)
	require.Equal(t, domain.AgentID("alice"), init.Initiator)

	peerRoot, err := handshake.ResponderRoot(bob, init)
	require.NoError(t, err)
	require.Equal(t, root, peerRoot)
}

func TestHandshake_FreshEphemeralPerRun(t *testing.T) {
	alice, _ := makeParty(t, "alice")
	_, bobBundle := makeParty(t, "bob")

	r1, i1, err := handshake.InitiatorRoot(alice, bobBundle)
	require.NoError(t, err)
	r2, i2, err := handshake.InitiatorRoot(alice, bobBundle)
	require.NoError(t, err)

	require.NotEqual(t, r1, r2)
	require.NotEqual(t, i1.EphemeralKey, i2.EphemeralKey)
}

func TestHandshake_TamperedBundle_Rejected(t *testing.T) {
	alice, _ := makeParty(t, "alice")
	_, bobBundle := makeParty(t, "bob")
	mallory, _ := makeParty(t, "mallory")

	// Substituted agreement key breaks the bundle self-signature.
	bobBundle.AgreementKey = mallory.AgreementPub

	_, _, err := handshake.InitiatorRoot(alice, bobBundle)
	require.ErrorIs(t, err, domain.ErrHandshakeFailed)
}

func TestHandshake_UnknownSuite_Rejected(t *testing.T) {
	alice, _ := makeParty(t, "alice")
	_, bobBundle := makeParty(t, "bob")
	bobBundle.Suite = domain.Suite(99)

	_, _, err := handshake.InitiatorRoot(alice, bobBundle)
	require.ErrorIs(t, err, domain.ErrUnknownSuite)
}
