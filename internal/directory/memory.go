package directory

import (
	"context"
	"errors"
	"sync"

	"agentwire/internal/crypto"
	"agentwire/internal/domain"
)

// Memory is an in-process directory. It can optionally hold private keys to
// offer custodial signing.
type Memory struct {
	mu        sync.RWMutex
	bundles   map[domain.AgentID]domain.PublicBundle
	custodial map[domain.AgentID]domain.Identity
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		bundles:   make(map[domain.AgentID]domain.PublicBundle),
		custodial: make(map[domain.AgentID]domain.Identity),
	}
}

var _ domain.Directory = (*Memory)(nil)

// Publish registers an agent's public bundle.
func (m *Memory) Publish(b domain.PublicBundle) {
	m.mu.Lock()
	m.bundles[b.Agent] = b
	m.mu.Unlock()
}

// Custody additionally retains the identity for custodial signing.
func (m *Memory) Custody(id domain.Identity) error {
	bundle, err := crypto.BundleFor(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.bundles[id.Agent] = bundle
	m.custodial[id.Agent] = id
	m.mu.Unlock()
	return nil
}

// Bundle returns the agent's public bundle.
func (m *Memory) Bundle(_ context.Context, agent domain.AgentID) (domain.PublicBundle, error) {
	m.mu.RLock()
	b, ok := m.bundles[agent]
	m.mu.RUnlock()
	if !ok {
		return domain.PublicBundle{}, domain.ErrIdentityNotFound
	}
	return b, nil
}

// Sign signs data on behalf of a custodial agent.
func (m *Memory) Sign(_ context.Context, agent domain.AgentID, data []byte) (domain.HybridSignature, error) {
	m.mu.RLock()
	id, ok := m.custodial[agent]
	m.mu.RUnlock()
	if !ok {
		return domain.HybridSignature{}, errors.New("agent keys are not custodial")
	}
	return crypto.SignHybrid(id.SigningPriv, id.PQSigningPriv, data)
}
