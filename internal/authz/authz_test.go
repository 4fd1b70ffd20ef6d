package authz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentwire/internal/authz"
	"agentwire/internal/domain"
)

func TestMemory_FirstMatchWins(t *testing.T) {
	m := authz.NewMemory(
		authz.Rule{Sender: "alice", Recipient: "bob", Outcome: domain.OutcomeDeny, Reason: "blocked pair"},
		authz.Rule{Sender: "alice", Outcome: domain.OutcomeAllow},
	)

	d, err := m.Check(context.Background(), "alice", "bob", "send")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeDeny, d.Outcome)
	require.Equal(t, "blocked pair", d.Reason)

	d, err = m.Check(context.Background(), "alice", "carol", "send")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAllow, d.Outcome)
}

func TestMemory_DefaultAllow(t *testing.T) {
	m := authz.NewMemory()
	d, err := m.Check(context.Background(), "x", "y", "send")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAllow, d.Outcome)
}

func TestMemory_WildcardRecipient(t *testing.T) {
	m := authz.NewMemory(authz.Rule{Recipient: "vault", Outcome: domain.OutcomeDeny, Reason: "protected"})

	d, err := m.Check(context.Background(), "anyone", "vault", "send")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeDeny, d.Outcome)
}

func TestHTTP_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/check", r.URL.Path)

		var req struct {
			Sender    string `json:"sender"`
			Recipient string `json:"recipient"`
			Action    string `json:"action"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "send", req.Action)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"outcome":        "rate_limited",
			"retry_after_ms": 1500,
		})
	}))
	defer srv.Close()

	c := authz.NewHTTP(srv.URL, srv.Client())
	d, err := c.Check(context.Background(), "alice", "bob", "send")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeRateLimited, d.Outcome)
	require.Equal(t, 1500*time.Millisecond, d.RetryAfter)
}

func TestHTTP_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := authz.NewHTTP(srv.URL, srv.Client())
	_, err := c.Check(context.Background(), "alice", "bob", "send")
	require.Error(t, err)
}
