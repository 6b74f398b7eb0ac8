// Package registry adapts the managed-key registry to the RegistryClient
// port. Account lookup, claims and mint polling go through the relay's REST
// API; gas estimation and transaction submission go to the chain RPC.
package registry

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/internal/eth"
)

// Client implements ports.RegistryClient. The zero value is not usable; use
// NewClient.
type Client struct {
	relayURL string
	apiKey   string
	http     *http.Client
	chain    ChainBackend
}

// NewClient creates a registry client talking to the given relay and chain
// backend. A nil httpClient falls back to http.DefaultClient.
func NewClient(relayURL, apiKey string, httpClient *http.Client, chain ChainBackend) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		relayURL: strings.TrimRight(relayURL, "/"),
		apiKey:   apiKey,
		http:     httpClient,
		chain:    chain,
	}
}

type relayAccount struct {
	TokenID    string `json:"tokenId"`
	PublicKey  string `json:"publicKey"`
	EthAddress string `json:"ethAddress"`
}

type fetchAccountsRequest struct {
	AuthMethodType uint32 `json:"authMethodType"`
	AuthMethodID   string `json:"authMethodId"`
}

// ListAccounts fetches the accounts bound to the auth method through the
// relay, oldest first.
func (c *Client) ListAccounts(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error) {
	var parsed struct {
		PKPs []relayAccount `json:"pkps"`
	}
	err := c.post(ctx, "/fetch-pkps-by-auth-method", fetchAccountsRequest{
		AuthMethodType: uint32(method.Type),
		AuthMethodID:   method.ID(),
	}, &parsed)
	if err != nil {
		return nil, err
	}

	accounts := make([]core.ManagedKeyAccount, 0, len(parsed.PKPs))
	for _, a := range parsed.PKPs {
		addr := common.HexToAddress(a.EthAddress)
		if a.EthAddress == "" {
			derived, err := eth.DeriveAddress(a.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("derive address for token %s: %w", a.TokenID, err)
			}
			addr = derived
		}
		accounts = append(accounts, core.ManagedKeyAccount{
			TokenID:        a.TokenID,
			PublicKey:      a.PublicKey,
			DerivedAddress: addr,
		})
	}
	return accounts, nil
}

type claimRequest struct {
	AuthMethodType uint32 `json:"authMethodType"`
	AuthMethodID   string `json:"authMethodId"`
	KeyType        uint8  `json:"keyType"`
}

type claimResponse struct {
	DerivedKeyID string                `json:"derivedKeyId"`
	Signatures   []core.ClaimSignature `json:"signatures"`
	KeyType      uint8                 `json:"keyType"`
}

// SubmitClaim asks the relay to derive a key identifier for the auth method.
func (c *Client) SubmitClaim(ctx context.Context, req core.ClaimRequest) (core.ClaimResult, error) {
	var parsed claimResponse
	err := c.post(ctx, "/claim", claimRequest{
		AuthMethodType: uint32(req.AuthMethod.Type),
		AuthMethodID:   req.AuthMethod.ID(),
		KeyType:        req.KeyType,
	}, &parsed)
	if err != nil {
		return core.ClaimResult{}, err
	}
	if parsed.DerivedKeyID == "" {
		return core.ClaimResult{}, fmt.Errorf("relay returned empty derived key id: %w", core.ErrProviderUnavailable)
	}
	return core.ClaimResult{
		DerivedKeyID: parsed.DerivedKeyID,
		Signatures:   parsed.Signatures,
		KeyType:      parsed.KeyType,
	}, nil
}

type mintRequest struct {
	DerivedKeyID string                `json:"derivedKeyId"`
	Signatures   []core.ClaimSignature `json:"signatures"`
	KeyType      uint8                 `json:"keyType"`

	PermittedAuthMethodTypes  []uint32  `json:"permittedAuthMethodTypes"`
	PermittedAuthMethodIDs    []string  `json:"permittedAuthMethodIds"`
	PermittedAuthMethodScopes [][]uint8 `json:"permittedAuthMethodScopes"`
	PermittedActionRef        string    `json:"permittedActionRef,omitempty"`
	PermittedActionScopes     []uint8   `json:"permittedActionScopes,omitempty"`
	AddDerivedAddress         bool      `json:"addPkpEthAddressAsPermittedAddress"`
	SendToSelf                bool      `json:"sendPkpToItself"`
}

// SubmitMint submits the claim-and-mint request and returns a handle for
// status polling.
func (c *Client) SubmitMint(ctx context.Context, claim core.ClaimResult, params core.MintParams) (string, error) {
	req := mintRequest{
		DerivedKeyID:      claim.DerivedKeyID,
		Signatures:        claim.Signatures,
		KeyType:           claim.KeyType,
		AddDerivedAddress: params.AddDerivedAddress,
		SendToSelf:        params.SendToSelf,
	}
	for _, m := range params.PermittedAuthMethods {
		req.PermittedAuthMethodTypes = append(req.PermittedAuthMethodTypes, uint32(m.AuthMethodType))
		req.PermittedAuthMethodIDs = append(req.PermittedAuthMethodIDs, m.AuthMethodID)
		req.PermittedAuthMethodScopes = append(req.PermittedAuthMethodScopes, scopeBytes(m.Scopes))
	}

	switch params.Action.Kind {
	case core.ActionRefInline:
		req.PermittedActionRef = "0x" + hex.EncodeToString(params.Action.Inline)
	case core.ActionRefCID:
		req.PermittedActionRef = params.Action.CID
	}
	if params.Action.Kind != 0 {
		req.PermittedActionScopes = scopeBytes(params.ActionScopes)
	}

	var parsed struct {
		RequestID string `json:"requestId"`
	}
	if err := c.post(ctx, "/mint-next-and-add-auth-methods", req, &parsed); err != nil {
		return "", err
	}
	if parsed.RequestID == "" {
		return "", fmt.Errorf("relay returned empty request id: %w", core.ErrProviderUnavailable)
	}
	return parsed.RequestID, nil
}

// PollStatus reports the relay's view of an in-flight mint.
func (c *Client) PollStatus(ctx context.Context, handle string) (core.MintStatus, error) {
	var parsed struct {
		Status       string `json:"status"`
		Error        string `json:"error"`
		PKPTokenID   string `json:"pkpTokenId"`
		PKPPublicKey string `json:"pkpPublicKey"`
		PKPAddress   string `json:"pkpEthAddress"`
	}
	if err := c.get(ctx, "/auth/status/"+handle, &parsed); err != nil {
		return core.MintStatus{}, err
	}

	status := core.MintStatus{State: core.MintState(parsed.Status), Reason: parsed.Error}
	switch status.State {
	case core.MintStatePending, core.MintStateFailed:
	case core.MintStateSucceeded:
		addr := common.HexToAddress(parsed.PKPAddress)
		if parsed.PKPAddress == "" && parsed.PKPPublicKey != "" {
			derived, err := eth.DeriveAddress(parsed.PKPPublicKey)
			if err == nil {
				addr = derived
			}
		}
		status.Account = &core.ManagedKeyAccount{
			TokenID:        parsed.PKPTokenID,
			PublicKey:      parsed.PKPPublicKey,
			DerivedAddress: addr,
		}
	default:
		return core.MintStatus{}, fmt.Errorf("relay returned unknown status %q: %w", parsed.Status, core.ErrProviderUnavailable)
	}
	return status, nil
}

func scopeBytes(scopes []core.Scope) []uint8 {
	out := make([]uint8, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, uint8(s))
	}
	return out
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal relay request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.relayURL+path, nil)
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay call: %w", core.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay status %d: %w", resp.StatusCode, core.ErrProviderUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode relay response: %w", core.ErrProviderUnavailable)
	}
	return nil
}
