package authz

import (
	"context"
	"sync"
	"time"

	"agentwire/internal/domain"
)

// Rule matches a (sender, recipient) pair; empty fields match anything.
type Rule struct {
	Sender     domain.AgentID
	Recipient  domain.AgentID
	Outcome    domain.Outcome
	Reason     string
	RetryAfter time.Duration
}

func (r Rule) matches(sender, recipient domain.AgentID) bool {
	if r.Sender != "" && r.Sender != sender {
		return false
	}
	if r.Recipient != "" && r.Recipient != recipient {
		return false
	}
	return true
}

// Memory evaluates an ordered rule list; first match wins. With no matching
// rule the default outcome applies.
type Memory struct {
	mu       sync.RWMutex
	rules    []Rule
	fallback domain.Outcome
}

// NewMemory returns an authorizer that allows by default.
func NewMemory(rules ...Rule) *Memory {
	return &Memory{rules: rules, fallback: domain.OutcomeAllow}
}

var _ domain.Authorizer = (*Memory)(nil)

// Deny appends a deny rule.
func (m *Memory) Deny(sender, recipient domain.AgentID, reason string) {
	m.mu.Lock()
	m.rules = append(m.rules, Rule{Sender: sender, Recipient: recipient, Outcome: domain.OutcomeDeny, Reason: reason})
	m.mu.Unlock()
}

// Check evaluates the rule list.
func (m *Memory) Check(_ context.Context, sender, recipient domain.AgentID, _ string) (domain.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rules {
		if r.matches(sender, recipient) {
			return domain.Decision{Outcome: r.Outcome, Reason: r.Reason, RetryAfter: r.RetryAfter}, nil
		}
	}
	return domain.Decision{Outcome: m.fallback}, nil
}
