package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agentwire/internal/domain"
)

// HTTPClient talks to an authorization service over HTTP.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client against base.
func NewHTTP(base string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{Base: base, HTTP: client}
}

var _ domain.Authorizer = (*HTTPClient)(nil)

type checkRequest struct {
	Sender    domain.AgentID `json:"sender"`
	Recipient domain.AgentID `json:"recipient"`
	Action    string         `json:"action"`
}

type checkResponse struct {
	Outcome         domain.Outcome `json:"outcome"`
	Reason          string         `json:"reason,omitempty"`
	RetryAfterMilli int64          `json:"retry_after_ms,omitempty"`
}

// Check posts the triple to POST {base}/check.
func (c *HTTPClient) Check(ctx context.Context, sender, recipient domain.AgentID, action string) (domain.Decision, error) {
	body, err := json.Marshal(checkRequest{Sender: sender, Recipient: recipient, Action: action})
	if err != nil {
		return domain.Decision{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/check", bytes.NewReader(body))
	if err != nil {
		return domain.Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Decision{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Decision{}, fmt.Errorf("authorization check: %s", resp.Status)
	}
	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{
		Outcome:    out.Outcome,
		Reason:     out.Reason,
		RetryAfter: time.Duration(out.RetryAfterMilli) * time.Millisecond,
	}, nil
}
