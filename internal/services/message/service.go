package message

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"agentwire/internal/domain"
	"agentwire/internal/envelope"
	"agentwire/internal/gate"
	"agentwire/internal/services/session"
)

const defaultTTL = 5 * time.Minute

// SendOptions tune a single send.
type SendOptions struct {
	// TTL bounds how long the envelope may sit in transit. Zero takes the
	// service default.
	TTL time.Duration
	// Priority is a transport scheduling hint. The in-process broker
	// delivers strictly in order and ignores it.
	Priority int
}

// Config tunes the service.
type Config struct {
	DefaultTTL time.Duration
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Service sends and receives encrypted messages for one local identity.
type Service struct {
	cfg       Config
	local     domain.AgentID
	sessions  *session.Service
	codec     *envelope.Codec
	gate      *gate.Gate
	transport domain.Transport
	audit     domain.AuditSink
	log       *logrus.Entry
}

// New wires the pipeline together.
func New(
	cfg Config,
	local domain.AgentID,
	sessions *session.Service,
	codec *envelope.Codec,
	g *gate.Gate,
	transport domain.Transport,
	audit domain.AuditSink,
	log *logrus.Entry,
) *Service {
	return &Service{
		cfg:       cfg.withDefaults(),
		local:     local,
		sessions:  sessions,
		codec:     codec,
		gate:      g,
		transport: transport,
		audit:     audit,
		log:       log,
	}
}

// Send encrypts plaintext for recipient and submits it through the delivery
// gate. The returned message id identifies the envelope whatever its fate;
// the receipt records how far it got.
func (s *Service) Send(ctx context.Context, recipient domain.AgentID, plaintext []byte, opts SendOptions) (domain.MessageID, domain.DeliveryReceipt, error) {
	sess, err := s.sessions.Establish(ctx, recipient)
	if err != nil {
		return "", domain.DeliveryReceipt{}, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	var env domain.Envelope
	err = sess.Do(func(e *session.Entry) error {
		var hs *domain.HandshakeInit
		if !e.Confirmed {
			hs = e.PendingInit
		}
		var encErr error
		env, encErr = s.codec.Encode(&e.State, recipient, plaintext, ttl, hs)
		return encErr
	})
	if err != nil {
		return "", domain.DeliveryReceipt{}, err
	}

	receipt, err := s.gate.Submit(ctx, env)
	if err != nil {
		return env.ID, receipt, err
	}
	return env.ID, receipt, nil
}

// Receive subscribes to the local identity's queue starting after cursor
// (zero resumes from the oldest unacknowledged envelope) and emits decrypted
// messages until ctx is done. The sequence is lazy and unbounded; callers
// commit progress with Acknowledge.
func (s *Service) Receive(ctx context.Context, cursor uint64) (<-chan domain.DecryptedMessage, error) {
	stream, err := s.transport.Subscribe(ctx, s.local, cursor)
	if err != nil {
		return nil, err
	}
	out := make(chan domain.DecryptedMessage)
	go func() {
		defer close(out)
		for qe := range stream {
			msg, ok := s.consume(ctx, qe)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()
	return out, nil
}

// Acknowledge commits the consumption offset up to and including cursor.
func (s *Service) Acknowledge(cursor uint64) error {
	return s.transport.Ack(s.local, cursor)
}

// consume runs one envelope through the inbound path. A false return means
// the envelope was rejected; rejects are terminal, audited and never handed
// to the application.
func (s *Service) consume(ctx context.Context, qe domain.QueuedEnvelope) (domain.DecryptedMessage, bool) {
	env := qe.Envelope

	if err := envelope.Validate(env); err != nil {
		s.reject(env, "malformed_envelope", err)
		return domain.DecryptedMessage{}, false
	}
	if err := s.gate.Admit(env); err != nil {
		// The gate audits expiry and duplicates itself; duplicates must not
		// reach the application a second time.
		if errors.Is(err, domain.ErrExpired) {
			_ = s.transport.DeadLetter(env, "expired before delivery")
		}
		return domain.DecryptedMessage{}, false
	}

	sess, err := s.sessions.Accept(ctx, env)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			s.reject(env, "signature_invalid", err)
		} else {
			s.reject(env, "session_bootstrap_failed", err)
		}
		return domain.DecryptedMessage{}, false
	}

	var plaintext []byte
	err = sess.Do(func(e *session.Entry) error {
		pt, decErr := s.codec.Decode(&e.State, e.PeerSigning, e.PeerPQSigning, env)
		if decErr != nil {
			return decErr
		}
		plaintext = pt
		// The peer demonstrably holds the session now; stop attaching the
		// handshake block to our own sends.
		e.Confirmed = true
		e.PendingInit = nil
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureInvalid):
			s.reject(env, "signature_invalid", err)
		case errors.Is(err, domain.ErrMessageReplayed):
			s.reject(env, "message_replayed", err)
		case errors.Is(err, domain.ErrTooManySkipped):
			s.reject(env, "skip_bound_exceeded", err)
		default:
			s.reject(env, "decryption_failed", err)
		}
		return domain.DecryptedMessage{}, false
	}

	return domain.DecryptedMessage{
		ID:        env.ID,
		Sender:    env.Sender,
		Recipient: env.Recipient,
		Plaintext: plaintext,
		Timestamp: env.Timestamp,
		Cursor:    qe.Cursor,
	}, true
}

// reject audits a security rejection and parks the envelope.
func (s *Service) reject(env domain.Envelope, typ string, err error) {
	s.audit.Append(domain.AuditEvent{
		Type:    typ,
		Agent:   env.Recipient,
		Peer:    env.Sender,
		Message: env.ID,
		Detail:  err.Error(),
		Time:    s.cfg.Now(),
	})
	s.log.WithFields(logrus.Fields{
		"message": env.ID,
		"sender":  env.Sender,
		"reason":  typ,
	}).Warn("inbound envelope rejected")
	_ = s.transport.DeadLetter(env, typ)
}
