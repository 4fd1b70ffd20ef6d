package app

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"agentwire/internal/audit"
	"agentwire/internal/authz"
	"agentwire/internal/directory"
	"agentwire/internal/domain"
	messagesvc "agentwire/internal/services/message"
	sessionsvc "agentwire/internal/services/session"
	"agentwire/internal/store"
	"agentwire/internal/transport"
)

// Wire bundles the stores, adapters and services for the CLI.
type Wire struct {
	Config    Config
	Log       *logrus.Logger
	Store     *store.File
	Directory domain.Directory
	Authz     domain.Authorizer
	Transport domain.Transport
	Audit     *audit.Log

	// Set by Open.
	Identity domain.Identity
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service
}

// NewWire constructs the identity-independent part of the dependency graph.
// Open completes it once an identity is available.
func NewWire(cfg Config) (*Wire, error) {
	log := logrus.New()
	if cfg.LogLevel != "" {
		lvl, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		log.SetLevel(lvl)
	}

	fileStore, err := store.NewFile(cfg.Home, cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var dir domain.Directory
	if cfg.DirectoryURL != "" {
		dir = directory.NewHTTP(cfg.DirectoryURL, httpClient)
	} else {
		dir = directory.NewMemory()
	}

	var authorizer domain.Authorizer
	if cfg.AuthzURL != "" {
		authorizer = authz.NewHTTP(cfg.AuthzURL, httpClient)
	} else {
		authorizer = authz.NewMemory()
	}

	return &Wire{
		Config:    cfg,
		Log:       log,
		Store:     fileStore,
		Directory: dir,
		Authz:     authorizer,
		Transport: transport.NewMemory(),
		Audit:     audit.NewLog(log.WithField("component", "audit")),
	}, nil
}

// Open builds the per-identity services and restores the last session
// checkpoint if one exists.
func (w *Wire) Open(id domain.Identity) error {
	core, err := NewCore(CoreDeps{
		Config:    w.Config,
		Identity:  id,
		Directory: w.Directory,
		Authz:     w.Authz,
		Transport: w.Transport,
		Audit:     w.Audit,
		Log:       w.Log,
	})
	if err != nil {
		return err
	}
	w.Identity = id
	w.Sessions = core.Sessions
	w.Messages = core.Messages

	snaps, err := w.Store.LoadCheckpoint()
	switch {
	case err == nil:
		w.Sessions.Restore(snaps)
	case errors.Is(err, store.ErrNotFound):
	default:
		return err
	}
	return nil
}

// Checkpoint seals the current session state to disk.
func (w *Wire) Checkpoint() error {
	if w.Sessions == nil {
		return nil
	}
	return w.Store.SaveCheckpoint(w.Sessions.Snapshot())
}

// Close tears the graph down, wiping session keys.
func (w *Wire) Close() {
	if w.Sessions != nil {
		w.Sessions.Close()
	}
	w.Audit.Close()
}
