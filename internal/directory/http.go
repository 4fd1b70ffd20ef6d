package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"agentwire/internal/domain"
)

// HTTPClient talks to a directory service over HTTP.
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

var _ domain.Directory = (*HTTPClient)(nil)

// Bundle fetches GET {base}/bundle/{agent}.
func (c *HTTPClient) Bundle(ctx context.Context, agent domain.AgentID) (domain.PublicBundle, error) {
	var out domain.PublicBundle
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/bundle/"+string(agent), nil)
	if err != nil {
		return out, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return out, domain.ErrIdentityNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("fetch bundle: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Sign posts data to POST {base}/sign/{agent} for custodial signing.
func (c *HTTPClient) Sign(ctx context.Context, agent domain.AgentID, data []byte) (domain.HybridSignature, error) {
	var out domain.HybridSignature
	body, err := json.Marshal(struct {
		Data []byte `json:"data"`
	}{Data: data})
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/sign/"+string(agent), bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("custodial sign: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
