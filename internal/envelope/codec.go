package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
	"agentwire/internal/protocol/ratchet"
)

const defaultMaxPayload = 1 << 20 // 1 MiB

// Codec turns plaintext into signed, encrypted envelopes and back.
type Codec struct {
	local      domain.Identity
	engine     *ratchet.Engine
	maxPayload int
	now        func() time.Time
}

// Option adjusts codec construction.
type Option func(*Codec)

// WithMaxPayload bounds accepted plaintext and ciphertext sizes.
func WithMaxPayload(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New constructs a codec signing as local and ratcheting through engine.
func New(local domain.Identity, engine *ratchet.Engine, opts ...Option) *Codec {
	c := &Codec{
		local:      local,
		engine:     engine,
		maxPayload: defaultMaxPayload,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Encode encrypts plaintext on the session's sending chain and wraps it in a
// signed envelope. The handshake block, when present, is covered by the
// signature so a responder can trust its bootstrap material.
func (c *Codec) Encode(
	st *domain.RatchetState,
	recipient domain.AgentID,
	plaintext []byte,
	ttl time.Duration,
	hs *domain.HandshakeInit,
) (domain.Envelope, error) {
	if len(plaintext) > c.maxPayload {
		return domain.Envelope{}, fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(plaintext))
	}

	ad := associatedData(c.local.Agent, recipient)
	header, nonce, ct, err := c.engine.Encrypt(st, ad, plaintext)
	if err != nil {
		return domain.Envelope{}, err
	}

	env := domain.Envelope{
		ID:         domain.MessageID(uuid.NewString()),
		Sender:     c.local.Agent,
		Recipient:  recipient,
		Suite:      st.Suite,
		Header:     header,
		Nonce:      nonce,
		Ciphertext: ct,
		Handshake:  hs,
		Timestamp:  c.now().Unix(),
		TTLSeconds: int64(ttl / time.Second),
	}
	sig, err := crypto.SignHybrid(c.local.SigningPriv, c.local.PQSigningPriv, SigningBytes(env))
	if err != nil {
		return domain.Envelope{}, err
	}
	env.Signature = sig
	return env, nil
}

// Decode verifies the envelope's hybrid signature against the peer's signing
// keys and only then derives the message key and decrypts. Either signature
// component failing rejects the whole envelope.
func (c *Codec) Decode(
	st *domain.RatchetState,
	peerSigning domain.Ed25519Public,
	peerPQSigning []byte,
	env domain.Envelope,
) ([]byte, error) {
	if err := Validate(env); err != nil {
		return nil, err
	}
	if env.Suite != domain.SuiteHybrid1 {
		return nil, fmt.Errorf("%w: suite %d", domain.ErrUnknownSuite, env.Suite)
	}
	if !crypto.VerifyHybrid(peerSigning, peerPQSigning, SigningBytes(env), env.Signature) {
		return nil, domain.ErrSignatureInvalid
	}

	ad := associatedData(env.Sender, env.Recipient)
	return c.engine.Decrypt(st, ad, env.Header, env.Nonce, env.Ciphertext)
}

// Validate performs structural checks that need no key material.
func Validate(env domain.Envelope) error {
	switch {
	case env.ID == "" || env.Sender == "" || env.Recipient == "":
		return fmt.Errorf("%w: missing identifiers", domain.ErrMalformedEnvelope)
	case len(env.Nonce) != ratchet.NonceSize:
		return fmt.Errorf("%w: nonce size %d", domain.ErrMalformedEnvelope, len(env.Nonce))
	case len(env.Ciphertext) == 0:
		return fmt.Errorf("%w: empty ciphertext", domain.ErrMalformedEnvelope)
	case len(env.Signature.Classical) == 0 || len(env.Signature.PostQuantum) == 0:
		return fmt.Errorf("%w: missing signature component", domain.ErrMalformedEnvelope)
	}
	return nil
}

// SigningBytes is the canonical digest the hybrid signature covers: all
// envelope fields except the signature itself.
func SigningBytes(env domain.Envelope) []byte {
	var ts, ttl [8]byte
	putInt64(ts[:], env.Timestamp)
	putInt64(ttl[:], env.TTLSeconds)

	parts := [][]byte{
		[]byte(env.ID),
		[]byte(env.Sender),
		[]byte(env.Recipient),
		{byte(env.Suite)},
		ratchet.HeaderBytes(env.Header),
		env.Nonce,
		env.Ciphertext,
		ts[:],
		ttl[:],
	}
	if env.Handshake != nil {
		parts = append(parts,
			[]byte(env.Handshake.Initiator),
			[]byte{byte(env.Handshake.Suite)},
			env.Handshake.AgreementKey.Slice(),
			env.Handshake.EphemeralKey.Slice(),
			env.Handshake.KEMCipher,
		)
	}
	return crypto.Transcript(parts...)
}

// associatedData binds sender and recipient identity into the AEAD.
func associatedData(sender, recipient domain.AgentID) []byte {
	return crypto.Transcript([]byte(sender), []byte(recipient))
}

func putInt64(b []byte, v int64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
