package domain

// PublicBundle is the per-agent public key material served by the Identity
// Directory: a classical key-agreement key, a post-quantum encapsulation key
// and one signing key of each family, self-signed by the signing keys.
type PublicBundle struct {
	Agent            AgentID         `json:"agent"`
	Suite            Suite           `json:"suite"`
	AgreementKey     X25519Public    `json:"agreement_key"`
	EncapsulationKey []byte          `json:"encapsulation_key"`
	SigningKey       Ed25519Public   `json:"signing_key"`
	PQSigningKey     []byte          `json:"pq_signing_key"`
	Signature        HybridSignature `json:"signature"`
}

// Identity holds an agent's long-term key pairs, public and private halves.
type Identity struct {
	Agent             AgentID        `json:"agent"`
	Suite             Suite          `json:"suite"`
	AgreementPub      X25519Public   `json:"agreement_pub"`
	AgreementPriv     X25519Private  `json:"agreement_priv"`
	EncapsulationPub  []byte         `json:"encapsulation_pub"`
	EncapsulationPriv []byte         `json:"encapsulation_priv"`
	SigningPub        Ed25519Public  `json:"signing_pub"`
	SigningPriv       Ed25519Private `json:"signing_priv"`
	PQSigningPub      []byte         `json:"pq_signing_pub"`
	PQSigningPriv     []byte         `json:"pq_signing_priv"`
}
