package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/custodykit/keystone/core"
)

// fakeRegistry is a hand-rolled RegistryClient double with per-method
// overrides and call counters.
type fakeRegistry struct {
	mu    sync.Mutex
	calls map[string]int

	listAccountsFn    func(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error)
	submitClaimFn     func(ctx context.Context, req core.ClaimRequest) (core.ClaimResult, error)
	submitMintFn      func(ctx context.Context, claim core.ClaimResult, params core.MintParams) (string, error)
	pollStatusFn      func(ctx context.Context, handle string) (core.MintStatus, error)
	estimateGasFn     func(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	suggestGasPriceFn func(ctx context.Context) (*big.Int, error)
	pendingNonceFn    func(ctx context.Context, address string) (uint64, error)
	submitFn          func(ctx context.Context, tx *types.Transaction) (core.TransactionReceipt, error)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{calls: make(map[string]int)}
}

func (f *fakeRegistry) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeRegistry) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRegistry) ListAccounts(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error) {
	f.count("ListAccounts")
	if f.listAccountsFn != nil {
		return f.listAccountsFn(ctx, method)
	}
	return nil, nil
}

func (f *fakeRegistry) SubmitClaim(ctx context.Context, req core.ClaimRequest) (core.ClaimResult, error) {
	f.count("SubmitClaim")
	if f.submitClaimFn != nil {
		return f.submitClaimFn(ctx, req)
	}
	return core.ClaimResult{DerivedKeyID: "derived-key", KeyType: KeyTypeECDSA}, nil
}

func (f *fakeRegistry) SubmitMint(ctx context.Context, claim core.ClaimResult, params core.MintParams) (string, error) {
	f.count("SubmitMint")
	if f.submitMintFn != nil {
		return f.submitMintFn(ctx, claim, params)
	}
	return "mint-handle", nil
}

func (f *fakeRegistry) PollStatus(ctx context.Context, handle string) (core.MintStatus, error) {
	f.count("PollStatus")
	if f.pollStatusFn != nil {
		return f.pollStatusFn(ctx, handle)
	}
	return core.MintStatus{State: core.MintStatePending}, nil
}

func (f *fakeRegistry) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	f.count("EstimateGas")
	if f.estimateGasFn != nil {
		return f.estimateGasFn(ctx, call)
	}
	return 21000, nil
}

func (f *fakeRegistry) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.count("SuggestGasPrice")
	if f.suggestGasPriceFn != nil {
		return f.suggestGasPriceFn(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeRegistry) PendingNonceAt(ctx context.Context, address string) (uint64, error) {
	f.count("PendingNonceAt")
	if f.pendingNonceFn != nil {
		return f.pendingNonceFn(ctx, address)
	}
	return 0, nil
}

func (f *fakeRegistry) Submit(ctx context.Context, tx *types.Transaction) (core.TransactionReceipt, error) {
	f.count("Submit")
	if f.submitFn != nil {
		return f.submitFn(ctx, tx)
	}
	return core.TransactionReceipt{TxHash: tx.Hash(), BlockNumber: big.NewInt(1), GasUsed: tx.Gas()}, nil
}

// fakeIDP returns a fixed auth method derived from the proof token.
type fakeIDP struct {
	verifyFn func(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error)
	calls    int
}

func (f *fakeIDP) Verify(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error) {
	f.calls++
	if f.verifyFn != nil {
		return f.verifyFn(ctx, proofToken, userIDHint)
	}
	return core.AuthMethod{
		Type:          core.AuthMethodTypeStytchOTP,
		RawCredential: "user-123:project-1",
	}, nil
}

// fakeStore is an in-memory consumed-id store without TTL expiry.
type fakeStore struct {
	mu       sync.Mutex
	consumed map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{consumed: make(map[string]bool)}
}

func (f *fakeStore) MarkConsumed(ctx context.Context, id string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed[id] = true
	return nil
}

func (f *fakeStore) IsConsumed(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumed[id], nil
}

// fakeTokenizer serializes credentials to a constant token.
type fakeTokenizer struct {
	token string
}

func (f *fakeTokenizer) CredentialToToken(cred *core.SessionCredential) (string, error) {
	if f.token != "" {
		return f.token, nil
	}
	return "session-token", nil
}

func (f *fakeTokenizer) TokenToCredential(token string) (*core.SessionCredential, error) {
	return &core.SessionCredential{SigningMaterial: token}, nil
}

// fakeSigning counts signing calls.
type fakeSigning struct {
	mu     sync.Mutex
	calls  int
	signFn func(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error)
}

func (f *fakeSigning) Sign(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.signFn != nil {
		return f.signFn(ctx, cred, payload, targetPublicKey)
	}
	return core.ExecutionResult{Signatures: map[string]string{"sig1": "0xsig"}}, nil
}

// fakeEvents records published events.
type fakeEvents struct {
	mu      sync.Mutex
	minted  []core.ManagedKeyAccount
	added   []core.PermissionRecord
	revoked []string
}

func (f *fakeEvents) PublishAccountMinted(ctx context.Context, account core.ManagedKeyAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minted = append(f.minted, account)
	return nil
}

func (f *fakeEvents) PublishPermissionAdded(ctx context.Context, tokenID string, record core.PermissionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, record)
	return nil
}

func (f *fakeEvents) PublishSessionRevoked(ctx context.Context, tokenID, credentialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, credentialID)
	return nil
}
