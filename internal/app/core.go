package app

import (
	"github.com/sirupsen/logrus"

	"agentwire/internal/domain"
	"agentwire/internal/envelope"
	"agentwire/internal/gate"
	"agentwire/internal/protocol/ratchet"
	messagesvc "agentwire/internal/services/message"
	sessionsvc "agentwire/internal/services/session"
)

// CoreDeps are the collaborators one agent's pipeline is built from. Several
// cores may share a directory, authorizer and transport, which is how the
// demo runs two agents in one process.
type CoreDeps struct {
	Config    Config
	Identity  domain.Identity
	Directory domain.Directory
	Authz     domain.Authorizer
	Transport domain.Transport
	Audit     domain.AuditSink
	Log       *logrus.Logger
}

// Core is one agent's assembled pipeline.
type Core struct {
	Identity domain.Identity
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service
}

// NewCore builds the session and message services for one identity.
func NewCore(d CoreDeps) (*Core, error) {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	agentLog := log.WithField("agent", d.Identity.Agent)

	engine := ratchet.New(ratchet.Config{
		MaxSkip:      cfg.MaxSkip,
		CacheSize:    cfg.SkipCacheSize,
		Eviction:     cfg.SkipEviction,
		StepEvery:    cfg.StepEvery,
		StepInterval: cfg.StepInterval,
	})

	sessions := sessionsvc.New(
		sessionsvc.Config{
			IdleTTL:     cfg.SessionIdleTTL,
			BackoffBase: cfg.BackoffBase,
			BackoffCap:  cfg.BackoffCap,
		},
		d.Identity,
		d.Directory,
		engine,
		d.Audit,
		agentLog.WithField("component", "session"),
	)

	var codecOpts []envelope.Option
	if cfg.MaxPayloadBytes > 0 {
		codecOpts = append(codecOpts, envelope.WithMaxPayload(cfg.MaxPayloadBytes))
	}
	codec := envelope.New(d.Identity, engine, codecOpts...)

	g := gate.New(
		gate.Config{
			AuthzTimeout:  cfg.AuthzTimeout,
			AuthzAttempts: cfg.AuthzAttempts,
			BackoffBase:   cfg.BackoffBase,
			BackoffCap:    cfg.BackoffCap,
			DedupeWindow:  cfg.DedupeWindow,
			DedupeSize:    cfg.DedupeSize,
		},
		d.Authz,
		d.Transport,
		d.Audit,
		agentLog.WithField("component", "gate"),
	)

	messages := messagesvc.New(
		messagesvc.Config{DefaultTTL: cfg.DefaultTTL},
		d.Identity.Agent,
		sessions,
		codec,
		g,
		d.Transport,
		d.Audit,
		agentLog.WithField("component", "message"),
	)

	return &Core{
		Identity: d.Identity,
		Sessions: sessions,
		Messages: messages,
	}, nil
}
