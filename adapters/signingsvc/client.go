// Package signingsvc adapts the distributed signing network's execute API to
// the SigningServiceClient port.
package signingsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/internal/eth"
	"github.com/custodykit/keystone/ports"
)

// Client submits signing/compute requests to the signing network gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a signing service client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) ports.SigningServiceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type executeRequest struct {
	SessionProof string `json:"sessionProof"`
	ToSign       string `json:"toSign"`
	PublicKey    string `json:"publicKey"`
	SigName      string `json:"sigName"`
}

// Sign hashes the payload and asks the network to sign the digest under the
// target public key, authorized by the session credential.
func (c *Client) Sign(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{
		SessionProof: cred.SigningMaterial,
		ToSign:       hexutil.Encode(eth.PayloadDigest(payload)),
		PublicKey:    targetPublicKey,
		SigName:      "sig1",
	})
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("execute call: %w", core.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ExecutionResult{}, fmt.Errorf("signing service status %d: %w", resp.StatusCode, core.ErrProviderUnavailable)
	}

	var result core.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.ExecutionResult{}, fmt.Errorf("decode execute response: %w", core.ErrProviderUnavailable)
	}
	return result, nil
}
