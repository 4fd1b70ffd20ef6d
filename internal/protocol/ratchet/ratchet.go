package ratchet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
	"agentwire/internal/util/memzero"
)

const (
	// NonceSize is the AEAD nonce carried in every envelope.
	NonceSize = chacha20poly1305.NonceSize

	defaultMaxSkip   = 1000
	defaultCacheSize = 1000
	defaultStepEvery = 20
)

var errChainUninitialised = errors.New("ratchet chain key is uninitialised")

// Config tunes the engine. Zero values take defaults; StepInterval zero
// disables the time-based trigger.
type Config struct {
	// MaxSkip bounds how far ahead a single message may run past the
	// receive counter.
	MaxSkip uint32
	// CacheSize bounds the skipped-key cache.
	CacheSize int
	// Eviction selects the cache eviction policy.
	Eviction domain.EvictionPolicy
	// StepEvery forces a send-side ratchet step after this many messages on
	// one chain.
	StepEvery uint32
	// StepInterval forces a send-side ratchet step after this much time
	// since the previous step.
	StepInterval time.Duration
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.MaxSkip == 0 {
		c.MaxSkip = defaultMaxSkip
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.Eviction == "" {
		c.Eviction = domain.EvictFIFO
	}
	if c.StepEvery == 0 {
		c.StepEvery = defaultStepEvery
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Engine advances ratchet state. The engine itself is stateless and safe to
// share; the per-session RatchetState it operates on is not.
type Engine struct {
	cfg Config
}

// New returns an engine with cfg normalised.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// InitAsInitiator seeds the sending chain from root against the peer's
// bundle keys, which stand in as the peer ratchet public key until the first
// reply carries a real one.
func (e *Engine) InitAsInitiator(root []byte, peer domain.RatchetPublic) (domain.RatchetState, error) {
	st := domain.RatchetState{
		Suite:      domain.SuiteHybrid1,
		RootKey:    append([]byte(nil), root...),
		PeerPublic: peer,
		Skipped:    make(map[string][]byte),
	}
	if err := e.sendStep(&st); err != nil {
		return domain.RatchetState{}, err
	}
	return st, nil
}

// InitAsResponder seeds the receiving chain from root using our bundle
// private keys and the initiator's first ratchet header. The send chain
// stays empty; the first send performs its own step.
func (e *Engine) InitAsResponder(
	root []byte,
	pub domain.RatchetPublic,
	agreementPriv domain.X25519Private,
	encapPriv []byte,
	header domain.RatchetHeader,
) (domain.RatchetState, error) {
	st := domain.RatchetState{
		Suite:             domain.SuiteHybrid1,
		RootKey:           append([]byte(nil), root...),
		Public:            pub,
		AgreementPriv:     agreementPriv,
		EncapsulationPriv: append([]byte(nil), encapPriv...),
		Skipped:           make(map[string][]byte),
	}
	if err := e.recvStep(&st, header); err != nil {
		return domain.RatchetState{}, err
	}
	return st, nil
}

// Encrypt derives the next message key, stepping the asymmetric ratchet
// first when the chain is fresh or the cadence triggers. It returns the
// header, a fresh nonce and the ciphertext.
func (e *Engine) Encrypt(st *domain.RatchetState, ad, plaintext []byte) (domain.RatchetHeader, []byte, []byte, error) {
	if e.needStep(st) {
		if err := e.sendStep(st); err != nil {
			return domain.RatchetHeader{}, nil, nil, err
		}
	}

	nextCK, mk := kdfCK(st.SendChainKey)
	header := domain.RatchetHeader{
		Public:              st.Public,
		KEMCiphertext:       st.PendingKEMCipher,
		PreviousChainLength: st.PreviousChainLength,
		MessageNumber:       st.SendCount,
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		memzero.ZeroAll(nextCK, mk)
		return domain.RatchetHeader{}, nil, nil, err
	}
	ct, err := seal(mk, nonce, append(headerBytes(header), ad...), plaintext)
	memzero.Zero(mk)
	if err != nil {
		memzero.Zero(nextCK)
		return domain.RatchetHeader{}, nil, nil, err
	}

	memzero.Zero(st.SendChainKey)
	st.SendChainKey = nextCK
	st.SendCount++
	return header, nonce, ct, nil
}

// Decrypt opens a message. The skipped-key cache is consulted first, keyed by
// the header's own ratchet key, so late messages from a superseded chain stay
// decryptable after the receive side has stepped on. A header carrying an
// unknown peer ratchet key is stepped on a scratch copy of the state and
// committed only once the ciphertext authenticates.
func (e *Engine) Decrypt(st *domain.RatchetState, ad []byte, header domain.RatchetHeader, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, domain.ErrMalformedEnvelope
	}
	aad := append(headerBytes(header), ad...)

	if mk, ok := e.consumeSkipped(st, chainID(header.Public), header.MessageNumber); ok {
		pt, err := open(mk, nonce, aad, ciphertext)
		if err != nil {
			// The key stays cached for a genuine delivery of this message.
			e.cacheSkipped(st, chainID(header.Public), header.MessageNumber, mk)
			return nil, domain.ErrDecryptionFailed
		}
		memzero.Zero(mk)
		return pt, nil
	}

	if header.Public.Equal(st.PeerPublic) {
		// Behind the chain position with no cached key left.
		if header.MessageNumber < st.RecvCount {
			return nil, domain.ErrMessageReplayed
		}
		if err := e.skipUntil(st, header.MessageNumber); err != nil {
			return nil, err
		}
		if len(st.RecvChainKey) == 0 {
			return nil, errChainUninitialised
		}
		nextCK, mk := kdfCK(st.RecvChainKey)
		pt, err := open(mk, nonce, aad, ciphertext)
		memzero.Zero(mk)
		if err != nil {
			memzero.Zero(nextCK)
			return nil, domain.ErrDecryptionFailed
		}
		memzero.Zero(st.RecvChainKey)
		st.RecvChainKey = nextCK
		st.RecvCount++
		return pt, nil
	}

	// Unknown peer ratchet key. All mutation happens on a scratch copy; a
	// stale or forged header must not disturb the live session.
	scratch := st.Clone()
	pt, err := e.decryptNewChain(&scratch, aad, header, nonce, ciphertext)
	if err != nil {
		wipe(&scratch)
		return nil, err
	}
	wipe(st)
	*st = scratch
	return pt, nil
}

// decryptNewChain closes out the previous receiving chain, steps against the
// header's ratchet key, catches up on the new chain and opens the message.
// A receiver that missed every message of an intermediate sending chain
// cannot advance the root past it; such a session fails closed here and needs
// a fresh handshake.
func (e *Engine) decryptNewChain(st *domain.RatchetState, aad []byte, header domain.RatchetHeader, nonce, ciphertext []byte) ([]byte, error) {
	if len(st.RecvChainKey) != 0 {
		if err := e.skipUntil(st, header.PreviousChainLength); err != nil {
			return nil, err
		}
	}
	if err := e.recvStep(st, header); err != nil {
		return nil, err
	}
	if err := e.skipUntil(st, header.MessageNumber); err != nil {
		return nil, err
	}
	if len(st.RecvChainKey) == 0 {
		return nil, errChainUninitialised
	}
	nextCK, mk := kdfCK(st.RecvChainKey)
	pt, err := open(mk, nonce, aad, ciphertext)
	memzero.Zero(mk)
	if err != nil {
		memzero.Zero(nextCK)
		return nil, domain.ErrDecryptionFailed
	}
	memzero.Zero(st.RecvChainKey)
	st.RecvChainKey = nextCK
	st.RecvCount++
	return pt, nil
}

// wipe zeroes a state's secrets before the state is discarded or replaced.
func wipe(st *domain.RatchetState) {
	memzero.ZeroAll(st.RootKey, st.SendChainKey, st.RecvChainKey, st.EncapsulationPriv, st.PendingKEMCipher)
	memzero.Zero(st.AgreementPriv[:])
	for k, mk := range st.Skipped {
		memzero.Zero(mk)
		delete(st.Skipped, k)
	}
	st.SkippedOrder = nil
}

// needStep reports whether the next send must begin a new chain.
func (e *Engine) needStep(st *domain.RatchetState) bool {
	if len(st.SendChainKey) == 0 {
		return true
	}
	if e.cfg.StepEvery > 0 && st.SendCount >= e.cfg.StepEvery {
		return true
	}
	if e.cfg.StepInterval > 0 && st.LastStepUnix > 0 {
		if e.cfg.Now().Unix()-st.LastStepUnix >= int64(e.cfg.StepInterval/time.Second) {
			return true
		}
	}
	return false
}

// sendStep generates a fresh hybrid ratchet pair, combines it with the
// peer's latest ratchet public key and rolls the root and sending chain.
func (e *Engine) sendStep(st *domain.RatchetState) error {
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	kemPub, kemPriv, err := crypto.GenerateKEM()
	if err != nil {
		return err
	}

	dh, err := crypto.DH(xPriv, st.PeerPublic.Agreement)
	if err != nil {
		return err
	}
	kemCT, kemSS, err := crypto.Encapsulate(st.PeerPublic.Encapsulation)
	if err != nil {
		return err
	}

	newRK, sendCK := kdfRK(st.RootKey, dh[:], kemSS)
	memzero.ZeroAll(dh[:], kemSS, st.RootKey, st.SendChainKey)

	st.PreviousChainLength = st.SendCount
	st.SendCount = 0
	st.RootKey = newRK
	st.Public = domain.RatchetPublic{Agreement: xPub, Encapsulation: kemPub}
	st.AgreementPriv = xPriv
	memzero.Zero(st.EncapsulationPriv)
	st.EncapsulationPriv = kemPriv
	st.SendChainKey = sendCK
	st.PendingKEMCipher = kemCT
	st.LastStepUnix = e.cfg.Now().Unix()
	return nil
}

// recvStep advances the root with the peer's new ratchet public key and
// resets the receiving chain. The send chain is cleared so the next send
// performs its own step against the new peer key.
func (e *Engine) recvStep(st *domain.RatchetState, header domain.RatchetHeader) error {
	if len(header.KEMCiphertext) == 0 {
		return fmt.Errorf("%w: ratchet header missing kem ciphertext", domain.ErrMalformedEnvelope)
	}
	dh, err := crypto.DH(st.AgreementPriv, header.Public.Agreement)
	if err != nil {
		return err
	}
	kemSS, err := crypto.Decapsulate(st.EncapsulationPriv, header.KEMCiphertext)
	if err != nil {
		return fmt.Errorf("%w: decapsulate: %v", domain.ErrDecryptionFailed, err)
	}

	newRK, recvCK := kdfRK(st.RootKey, dh[:], kemSS)
	memzero.ZeroAll(dh[:], kemSS, st.RootKey, st.RecvChainKey, st.SendChainKey)

	st.RootKey = newRK
	st.PeerPublic = header.Public
	st.RecvChainKey = recvCK
	st.RecvCount = 0
	st.SendChainKey = nil
	st.PendingKEMCipher = nil
	return nil
}

// skipUntil derives and caches message keys up to n on the current receive
// chain, bounded by the maximum skip distance.
func (e *Engine) skipUntil(st *domain.RatchetState, n uint32) error {
	if n <= st.RecvCount {
		return nil
	}
	if len(st.RecvChainKey) == 0 {
		return errChainUninitialised
	}
	if n-st.RecvCount > e.cfg.MaxSkip {
		return fmt.Errorf("%w: %d ahead of %d", domain.ErrTooManySkipped, n, st.RecvCount)
	}
	chain := chainID(st.PeerPublic)
	for st.RecvCount < n {
		nextCK, mk := kdfCK(st.RecvChainKey)
		e.cacheSkipped(st, chain, st.RecvCount, mk)
		memzero.Zero(st.RecvChainKey)
		st.RecvChainKey = nextCK
		st.RecvCount++
	}
	return nil
}

// --- helpers ---

func seal(mk, nonce, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

func open(mk, nonce, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, ad)
}

// headerBytes is the canonical header encoding bound into the AEAD.
func headerBytes(h domain.RatchetHeader) []byte {
	out := make([]byte, 0, 32+8+len(h.Public.Encapsulation)+len(h.KEMCiphertext)+16)
	var b [4]byte
	out = append(out, h.Public.Agreement.Slice()...)
	binary.BigEndian.PutUint32(b[:], uint32(len(h.Public.Encapsulation)))
	out = append(out, b[:]...)
	out = append(out, h.Public.Encapsulation...)
	binary.BigEndian.PutUint32(b[:], uint32(len(h.KEMCiphertext)))
	out = append(out, b[:]...)
	out = append(out, h.KEMCiphertext...)
	binary.BigEndian.PutUint32(b[:], h.PreviousChainLength)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], h.MessageNumber)
	out = append(out, b[:]...)
	return out
}

// HeaderBytes exposes the canonical encoding for signing.
func HeaderBytes(h domain.RatchetHeader) []byte { return headerBytes(h) }

// HKDF-based KDFs with labels.
func kdfRK(rk, dh, kemSS []byte) (newRK, ck []byte) {
	ikm := make([]byte, 0, len(dh)+len(kemSS))
	ikm = append(ikm, dh...)
	ikm = append(ikm, kemSS...)
	r := hkdf.New(sha256.New, ikm, rk, []byte("agentwire/rk"))
	newRK = make([]byte, 32)
	ck = make([]byte, 32)
	_, _ = io.ReadFull(r, newRK)
	_, _ = io.ReadFull(r, ck)
	memzero.Zero(ikm)
	return
}

func kdfCK(ck []byte) (nextCK, mk []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte("agentwire/ck"))
	nextCK = make([]byte, 32)
	mk = make([]byte, 32)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return
}

// chainID fingerprints a peer ratchet public key for skipped-key bookkeeping.
// Hex keeps the cache keys JSON-safe for checkpointing.
func chainID(pub domain.RatchetPublic) string {
	h := sha256.New()
	h.Write(pub.Agreement.Slice())
	h.Write(pub.Encapsulation)
	return hex.EncodeToString(h.Sum(nil)[:16])
}
