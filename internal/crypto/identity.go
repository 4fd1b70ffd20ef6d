package crypto

import (
	"fmt"

	"agentwire/internal/domain"
)

// NewIdentity generates the full hybrid key set for an agent.
func NewIdentity(agent domain.AgentID) (domain.Identity, error) {
	xPriv, xPub, err := GenerateX25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generate agreement key: %w", err)
	}
	kemPub, kemPriv, err := GenerateKEM()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generate encapsulation key: %w", err)
	}
	edPriv, edPub, err := GenerateEd25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generate signing key: %w", err)
	}
	pqPub, pqPriv, err := GeneratePQSigning()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generate pq signing key: %w", err)
	}
	return domain.Identity{
		Agent:             agent,
		Suite:             domain.SuiteHybrid1,
		AgreementPub:      xPub,
		AgreementPriv:     xPriv,
		EncapsulationPub:  kemPub,
		EncapsulationPriv: kemPriv,
		SigningPub:        edPub,
		SigningPriv:       edPriv,
		PQSigningPub:      pqPub,
		PQSigningPriv:     pqPriv,
	}, nil
}

// BundleFor builds the self-signed public bundle for an identity.
func BundleFor(id domain.Identity) (domain.PublicBundle, error) {
	b := domain.PublicBundle{
		Agent:            id.Agent,
		Suite:            id.Suite,
		AgreementKey:     id.AgreementPub,
		EncapsulationKey: id.EncapsulationPub,
		SigningKey:       id.SigningPub,
		PQSigningKey:     id.PQSigningPub,
	}
	sig, err := SignHybrid(id.SigningPriv, id.PQSigningPriv, bundleBytes(b))
	if err != nil {
		return domain.PublicBundle{}, err
	}
	b.Signature = sig
	return b, nil
}

// VerifyBundle checks the bundle's hybrid self-signature.
func VerifyBundle(b domain.PublicBundle) bool {
	return VerifyHybrid(b.SigningKey, b.PQSigningKey, bundleBytes(b), b.Signature)
}

// bundleBytes is the canonical signing input: every public field,
// length-prefixed, signature excluded.
func bundleBytes(b domain.PublicBundle) []byte {
	return Transcript(
		[]byte(b.Agent),
		[]byte{byte(b.Suite)},
		b.AgreementKey.Slice(),
		b.EncapsulationKey,
		b.SigningKey.Slice(),
		b.PQSigningKey,
	)
}
