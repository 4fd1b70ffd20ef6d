package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
	"agentwire/internal/envelope"
	"agentwire/internal/protocol/handshake"
	"agentwire/internal/protocol/ratchet"
)

const (
	defaultIdleTTL     = time.Hour
	defaultSweepEvery  = time.Minute
	defaultDirAttempts = 3
	defaultBackoffBase = 100 * time.Millisecond
	defaultBackoffCap  = 30 * time.Second
)

// Config tunes the session service. Zero values take defaults.
type Config struct {
	// IdleTTL tears a session down after this much inactivity.
	IdleTTL time.Duration
	// SweepEvery is the janitor interval.
	SweepEvery time.Duration
	// DirAttempts bounds Identity Directory fetch retries.
	DirAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.IdleTTL <= 0 {
		c.IdleTTL = defaultIdleTTL
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = defaultSweepEvery
	}
	if c.DirAttempts <= 0 {
		c.DirAttempts = defaultDirAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaultBackoffCap
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Service owns the session registry for one local identity.
type Service struct {
	cfg    Config
	local  domain.Identity
	dir    domain.Directory
	engine *ratchet.Engine
	audit  domain.AuditSink
	log    *logrus.Entry

	mu      sync.Mutex
	entries map[domain.AgentID]*Entry

	stop chan struct{}
	done chan struct{}
}

// New constructs the service and starts its idle-TTL janitor.
func New(cfg Config, local domain.Identity, dir domain.Directory, engine *ratchet.Engine, audit domain.AuditSink, log *logrus.Entry) *Service {
	s := &Service{
		cfg:     cfg.withDefaults(),
		local:   local,
		dir:     dir,
		engine:  engine,
		audit:   audit,
		log:     log,
		entries: make(map[domain.AgentID]*Entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the janitor and wipes every session.
func (s *Service) Close() {
	close(s.stop)
	<-s.done
	s.mu.Lock()
	for peer, e := range s.entries {
		e.wipe()
		delete(s.entries, peer)
	}
	s.mu.Unlock()
}

// Establish returns the session for peer, reusing an existing one or running
// the hybrid handshake against the peer's directory bundle.
func (s *Service) Establish(ctx context.Context, peer domain.AgentID) (*Entry, error) {
	if e, ok := s.Lookup(peer); ok {
		return e, nil
	}

	bundle, err := s.fetchBundle(ctx, peer)
	if err != nil {
		return nil, err
	}
	root, init, err := handshake.InitiatorRoot(s.local, bundle)
	if err != nil {
		return nil, err
	}
	st, err := s.engine.InitAsInitiator(root, domain.RatchetPublic{
		Agreement:     bundle.AgreementKey,
		Encapsulation: bundle.EncapsulationKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}

	now := s.cfg.Now().Unix()
	e := &Entry{
		Local:         s.local.Agent,
		Peer:          peer,
		Suite:         domain.SuiteHybrid1,
		PeerSigning:   bundle.SigningKey,
		PeerPQSigning: bundle.PQSigningKey,
		State:         st,
		PendingInit:   &init,
		CreatedUnix:   now,
		lastUsedUnix:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have raced us through the handshake; keep the
	// registered session so both sides agree on one root.
	if existing, ok := s.entries[peer]; ok {
		e.wipe()
		return existing, nil
	}
	s.entries[peer] = e
	s.log.WithFields(logrus.Fields{"peer": peer}).Debug("session established as initiator")
	return e, nil
}

// Accept returns the session for an inbound envelope, bootstrapping a
// responder session from its handshake block when none exists. The
// envelope's hybrid signature is verified against the sender's directory
// bundle before any key derivation.
func (s *Service) Accept(ctx context.Context, env domain.Envelope) (*Entry, error) {
	if e, ok := s.Lookup(env.Sender); ok {
		return e, nil
	}
	if env.Handshake == nil {
		return nil, fmt.Errorf("%w: no handshake block from %s", domain.ErrNoSession, env.Sender)
	}

	bundle, err := s.fetchBundle(ctx, env.Sender)
	if err != nil {
		return nil, err
	}
	if !crypto.VerifyHybrid(bundle.SigningKey, bundle.PQSigningKey, envelope.SigningBytes(env), env.Signature) {
		return nil, domain.ErrSignatureInvalid
	}
	// The init block must carry the sender's registered agreement key, or
	// the handshake is not from who the signature says it is.
	if env.Handshake.AgreementKey != bundle.AgreementKey || env.Handshake.Initiator != env.Sender {
		return nil, fmt.Errorf("%w: handshake keys do not match directory bundle", domain.ErrHandshakeFailed)
	}

	root, err := handshake.ResponderRoot(s.local, *env.Handshake)
	if err != nil {
		return nil, err
	}
	st, err := s.engine.InitAsResponder(
		root,
		domain.RatchetPublic{Agreement: s.local.AgreementPub, Encapsulation: s.local.EncapsulationPub},
		s.local.AgreementPriv,
		s.local.EncapsulationPriv,
		env.Header,
	)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now().Unix()
	e := &Entry{
		Local:         s.local.Agent,
		Peer:          env.Sender,
		Suite:         domain.SuiteHybrid1,
		PeerSigning:   bundle.SigningKey,
		PeerPQSigning: bundle.PQSigningKey,
		State:         st,
		Confirmed:     true,
		CreatedUnix:   now,
		lastUsedUnix:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[env.Sender]; ok {
		e.wipe()
		return existing, nil
	}
	s.entries[env.Sender] = e
	s.log.WithFields(logrus.Fields{"peer": env.Sender}).Debug("session established as responder")
	return e, nil
}

// Lookup returns an existing session and refreshes its idle clock.
func (s *Service) Lookup(peer domain.AgentID) (*Entry, bool) {
	s.mu.Lock()
	e, ok := s.entries[peer]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	now := s.cfg.Now().Unix()
	_ = e.Do(func(e *Entry) error {
		e.touch(now)
		return nil
	})
	return e, true
}

// Drop tears down the session for peer, wiping its keys.
func (s *Service) Drop(peer domain.AgentID) {
	s.mu.Lock()
	e, ok := s.entries[peer]
	delete(s.entries, peer)
	s.mu.Unlock()
	if ok {
		e.wipe()
	}
}

// Snapshot captures every session for checkpointing.
func (s *Service) Snapshot() []EntrySnapshot {
	s.mu.Lock()
	entries := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]EntrySnapshot, 0, len(entries))
	for _, e := range entries {
		_ = e.Do(func(e *Entry) error {
			out = append(out, EntrySnapshot{
				Peer:          e.Peer,
				Suite:         e.Suite,
				PeerSigning:   e.PeerSigning,
				PeerPQSigning: e.PeerPQSigning,
				State:         e.State.Clone(),
				PendingInit:   e.PendingInit,
				Confirmed:     e.Confirmed,
				CreatedUnix:   e.CreatedUnix,
			})
			return nil
		})
	}
	return out
}

// Restore rebuilds the registry from a checkpoint, skipping peers that
// already have a live session.
func (s *Service) Restore(snaps []EntrySnapshot) {
	now := s.cfg.Now().Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		if _, ok := s.entries[snap.Peer]; ok {
			continue
		}
		s.entries[snap.Peer] = &Entry{
			Local:         s.local.Agent,
			Peer:          snap.Peer,
			Suite:         snap.Suite,
			PeerSigning:   snap.PeerSigning,
			PeerPQSigning: snap.PeerPQSigning,
			State:         snap.State.Clone(),
			PendingInit:   snap.PendingInit,
			Confirmed:     snap.Confirmed,
			CreatedUnix:   snap.CreatedUnix,
			lastUsedUnix:  now,
		}
	}
}

// fetchBundle retries transient directory failures with exponential backoff
// and fails closed. A missing identity is permanent and surfaces at once.
func (s *Service) fetchBundle(ctx context.Context, peer domain.AgentID) (domain.PublicBundle, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.BackoffBase
	bo.MaxInterval = s.cfg.BackoffCap
	bo.RandomizationFactor = 0.25
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.DirAttempts; attempt++ {
		bundle, err := s.dir.Bundle(ctx, peer)
		if err == nil {
			return bundle, nil
		}
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.PublicBundle{}, err
		}
		lastErr = err
		if attempt == s.cfg.DirAttempts {
			break
		}
		t := time.NewTimer(bo.NextBackOff())
		select {
		case <-ctx.Done():
			t.Stop()
			return domain.PublicBundle{}, ctx.Err()
		case <-t.C:
		}
	}
	return domain.PublicBundle{}, fmt.Errorf("directory unavailable after %d attempts: %w", s.cfg.DirAttempts, lastErr)
}

// janitor tears down idle sessions.
func (s *Service) janitor() {
	defer close(s.done)
	t := time.NewTicker(s.cfg.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	cutoff := s.cfg.Now().Add(-s.cfg.IdleTTL).Unix()
	var expired []*Entry
	s.mu.Lock()
	for peer, e := range s.entries {
		if e.idleSince() < cutoff {
			expired = append(expired, e)
			delete(s.entries, peer)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		peer := e.Peer
		e.wipe()
		s.audit.Append(domain.AuditEvent{
			Type:  "session_expired",
			Agent: s.local.Agent,
			Peer:  peer,
			Time:  s.cfg.Now(),
		})
		s.log.WithFields(logrus.Fields{"peer": peer}).Debug("idle session torn down")
	}
}
