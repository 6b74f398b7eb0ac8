// Package idp adapts the OTP identity provider's REST API to the
// IdentityProviderClient port.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// Client verifies OTP session proofs against a Stytch-compatible provider.
type Client struct {
	baseURL   string
	projectID string
	secret    string
	http      *http.Client
}

// NewClient creates a provider client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL, projectID, secret string, httpClient *http.Client) ports.IdentityProviderClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		secret:    secret,
		http:      httpClient,
	}
}

type authenticateRequest struct {
	SessionJWT string `json:"session_jwt"`
	UserID     string `json:"user_id,omitempty"`
}

type authenticateResponse struct {
	UserID string `json:"user_id"`
}

// Verify exchanges the proof token for a normalized auth method. The raw
// credential is the lowercased user id joined with the project id, so its
// hash is stable across calls and across provider sessions for the same user.
func (c *Client) Verify(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error) {
	body, err := json.Marshal(authenticateRequest{
		SessionJWT: proofToken,
		UserID:     userIDHint,
	})
	if err != nil {
		return core.AuthMethod{}, fmt.Errorf("marshal authenticate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions/authenticate", bytes.NewReader(body))
	if err != nil {
		return core.AuthMethod{}, fmt.Errorf("build authenticate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.projectID, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return core.AuthMethod{}, fmt.Errorf("authenticate call: %w", core.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return core.AuthMethod{}, fmt.Errorf("provider status %d: %w", resp.StatusCode, core.ErrAuthInvalid)
	default:
		return core.AuthMethod{}, fmt.Errorf("provider status %d: %w", resp.StatusCode, core.ErrProviderUnavailable)
	}

	var parsed authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.AuthMethod{}, fmt.Errorf("decode authenticate response: %w", core.ErrProviderUnavailable)
	}
	if parsed.UserID == "" {
		return core.AuthMethod{}, fmt.Errorf("provider returned no user id: %w", core.ErrAuthInvalid)
	}

	return core.AuthMethod{
		Type:          core.AuthMethodTypeStytchOTP,
		RawCredential: strings.ToLower(parsed.UserID) + ":" + c.projectID,
	}, nil
}
