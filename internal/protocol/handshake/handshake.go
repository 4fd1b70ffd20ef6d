package handshake

import (
	"fmt"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
	"agentwire/internal/util/memzero"
)

const rootLabel = "agentwire/hs/v1"

// InitiatorRoot verifies the peer bundle and derives the session root key as
// the initiator. The returned init block must reach the responder before it
// can decrypt anything.
func InitiatorRoot(local domain.Identity, peer domain.PublicBundle) ([]byte, domain.HandshakeInit, error) {
	if peer.Suite != domain.SuiteHybrid1 {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: suite %d", domain.ErrUnknownSuite, peer.Suite)
	}
	if !crypto.VerifyBundle(peer) {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: bundle signature", domain.ErrHandshakeFailed)
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}

	dh1, err := crypto.DH(local.AgreementPriv, peer.AgreementKey) // DH(IK_a, IK_b)
	if err != nil {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}
	dh2, err := crypto.DH(ephPriv, peer.AgreementKey) // DH(EK_a, IK_b)
	if err != nil {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}
	kemCT, kemSS, err := crypto.Encapsulate(peer.EncapsulationKey)
	if err != nil {
		return nil, domain.HandshakeInit{}, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}

	root := crypto.MixSecrets(rootLabel,
		transcript(local.AgreementPub, peer, ephPub, kemCT),
		dh1[:], dh2[:], kemSS)
	memzero.ZeroAll(dh1[:], dh2[:], kemSS)

	init := domain.HandshakeInit{
		Initiator:    local.Agent,
		Suite:        domain.SuiteHybrid1,
		AgreementKey: local.AgreementPub,
		EphemeralKey: ephPub,
		KEMCipher:    kemCT,
	}
	return root, init, nil
}

// ResponderRoot derives the same root key from the initiator's init block.
func ResponderRoot(local domain.Identity, init domain.HandshakeInit) ([]byte, error) {
	if init.Suite != domain.SuiteHybrid1 {
		return nil, fmt.Errorf("%w: suite %d", domain.ErrUnknownSuite, init.Suite)
	}
	dh1, err := crypto.DH(local.AgreementPriv, init.AgreementKey) // DH(IK_b, IK_a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}
	dh2, err := crypto.DH(local.AgreementPriv, init.EphemeralKey) // DH(IK_b, EK_a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}
	kemSS, err := crypto.Decapsulate(local.EncapsulationPriv, init.KEMCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: decapsulate: %v", domain.ErrHandshakeFailed, err)
	}

	responder := domain.PublicBundle{
		AgreementKey:     local.AgreementPub,
		EncapsulationKey: local.EncapsulationPub,
	}
	root := crypto.MixSecrets(rootLabel,
		transcript(init.AgreementKey, responder, init.EphemeralKey, init.KEMCipher),
		dh1[:], dh2[:], kemSS)
	memzero.ZeroAll(dh1[:], dh2[:], kemSS)
	return root, nil
}

// transcript binds every public value of the exchange into the derivation.
func transcript(initiatorIK domain.X25519Public, responder domain.PublicBundle, eph domain.X25519Public, kemCT []byte) []byte {
	return crypto.Transcript(
		initiatorIK.Slice(),
		responder.AgreementKey.Slice(),
		responder.EncapsulationKey,
		eph.Slice(),
		kemCT,
	)
}
