package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Velocidex/ttlcache/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"agentwire/internal/domain"
)

const (
	defaultAuthzTimeout  = time.Second
	defaultAuthzAttempts = 3
	defaultBackoffBase   = 100 * time.Millisecond
	defaultBackoffCap    = 30 * time.Second
	defaultDedupeWindow  = 10 * time.Minute
	defaultDedupeSize    = 65536

	// ActionSend is the action name presented to the authorization service.
	ActionSend = "send"
)

// Config tunes gate behaviour. Zero values take defaults.
type Config struct {
	AuthzTimeout  time.Duration
	AuthzAttempts int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	DedupeWindow  time.Duration
	DedupeSize    int
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.AuthzTimeout <= 0 {
		c.AuthzTimeout = defaultAuthzTimeout
	}
	if c.AuthzAttempts <= 0 {
		c.AuthzAttempts = defaultAuthzAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaultBackoffCap
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = defaultDedupeWindow
	}
	if c.DedupeSize <= 0 {
		c.DedupeSize = defaultDedupeSize
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Gate authorizes outbound envelopes and deduplicates inbound ones.
type Gate struct {
	cfg       Config
	authz     domain.Authorizer
	transport domain.Transport
	audit     domain.AuditSink
	log       *logrus.Entry

	mu   sync.Mutex
	seen *ttlcache.Cache
}

// New constructs a gate. The seen-set is bounded in both size and time.
func New(cfg Config, authz domain.Authorizer, transport domain.Transport, audit domain.AuditSink, log *logrus.Entry) *Gate {
	cfg = cfg.withDefaults()
	seen := ttlcache.NewCache()
	seen.SetCacheSizeLimit(cfg.DedupeSize)
	_ = seen.SetTTL(cfg.DedupeWindow)
	return &Gate{
		cfg:       cfg,
		authz:     authz,
		transport: transport,
		audit:     audit,
		log:       log,
		seen:      seen,
	}
}

// Close releases the dedupe cache.
func (g *Gate) Close() {
	g.seen.Close()
}

// Submit runs the pre-send path: expiry check, authorization with bounded
// retry, then enqueue. A context cancelled before the enqueue leaves no side
// effects; once enqueued the message counts as sent.
func (g *Gate) Submit(ctx context.Context, env domain.Envelope) (domain.DeliveryReceipt, error) {
	lc := NewLifecycle(env.ID, g.cfg.Now)

	if env.Expired(g.cfg.Now().Unix()) {
		_ = lc.To(domain.StateExpired)
		g.event("envelope_expired", env, "expired before authorization")
		return lc.Receipt(), domain.ErrExpired
	}
	if err := lc.To(domain.StateAuthorizationPending); err != nil {
		return lc.Receipt(), err
	}

	decision, err := g.authorize(ctx, env)
	if err != nil {
		g.event("authorization_failed", env, err.Error())
		return lc.Receipt(), err
	}
	if decision.Outcome == domain.OutcomeDeny {
		_ = lc.To(domain.StateDenied)
		_ = lc.To(domain.StateRejected)
		g.event("delivery_denied", env, decision.Reason)
		return lc.Receipt(), &domain.DeniedError{Reason: decision.Reason}
	}
	if err := lc.To(domain.StateApproved); err != nil {
		return lc.Receipt(), err
	}

	// Last cancellation point: nothing has left the process yet.
	if err := ctx.Err(); err != nil {
		return lc.Receipt(), err
	}
	if err := g.transport.Enqueue(ctx, env); err != nil {
		return lc.Receipt(), fmt.Errorf("enqueue %s: %w", env.ID, err)
	}
	_ = lc.To(domain.StateEnqueued)
	g.log.WithFields(logrus.Fields{
		"message":   env.ID,
		"sender":    env.Sender,
		"recipient": env.Recipient,
	}).Debug("envelope enqueued")
	return lc.Receipt(), nil
}

// Admit runs the pre-deliver path: expiry, then the recently-seen set.
// Exact duplicates are rejected without a second application callback.
func (g *Gate) Admit(env domain.Envelope) error {
	if env.Expired(g.cfg.Now().Unix()) {
		g.event("envelope_expired", env, "expired before delivery")
		return domain.ErrExpired
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.seen.Get(string(env.ID)); err == nil {
		g.event("duplicate_message", env, "message id already delivered")
		return domain.ErrDuplicateMessage
	}
	_ = g.seen.Set(string(env.ID), struct{}{})
	return nil
}

// authorize consults the external authorization interface with a per-call
// timeout and bounded exponential backoff, failing closed once the retry
// budget is spent. Rate limiting honours the server-provided backoff.
func (g *Gate) authorize(ctx context.Context, env domain.Envelope) (domain.Decision, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.BackoffBase
	bo.MaxInterval = g.cfg.BackoffCap
	bo.RandomizationFactor = 0.25
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= g.cfg.AuthzAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.AuthzTimeout)
		decision, err := g.authz.Check(callCtx, env.Sender, env.Recipient, ActionSend)
		cancel()

		if err == nil {
			switch decision.Outcome {
			case domain.OutcomeAllow, domain.OutcomeDeny:
				return decision, nil
			case domain.OutcomeRateLimited:
				lastErr = &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
				wait := decision.RetryAfter
				if wait <= 0 {
					wait = bo.NextBackOff()
				}
				if err := sleep(ctx, wait); err != nil {
					return domain.Decision{}, err
				}
				continue
			default:
				return domain.Decision{}, fmt.Errorf("authorization returned unknown outcome %q", decision.Outcome)
			}
		}

		lastErr = err
		if attempt == g.cfg.AuthzAttempts {
			break
		}
		if err := sleep(ctx, bo.NextBackOff()); err != nil {
			return domain.Decision{}, err
		}
	}
	return domain.Decision{}, fmt.Errorf("authorization unavailable after %d attempts: %w", g.cfg.AuthzAttempts, lastErr)
}

func (g *Gate) event(typ string, env domain.Envelope, detail string) {
	g.audit.Append(domain.AuditEvent{
		Type:    typ,
		Agent:   env.Sender,
		Peer:    env.Recipient,
		Message: env.ID,
		Detail:  detail,
		Time:    g.cfg.Now(),
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
