package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/custodykit/keystone/core"
)

// RegistryClient talks to the managed-key registry: the relay for account
// lookup and claims, and the chain for permission mutations.
type RegistryClient interface {
	// ListAccounts returns the managed key accounts bound to the auth
	// method, oldest first by mint order. An empty slice is the expected
	// result for a fresh identity, not an error.
	ListAccounts(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error)

	// SubmitClaim derives a key identifier for the auth method and returns
	// the claim attestation.
	SubmitClaim(ctx context.Context, req core.ClaimRequest) (core.ClaimResult, error)

	// SubmitMint submits the mint transaction bound to a claim and returns a
	// handle for status polling.
	SubmitMint(ctx context.Context, claim core.ClaimResult, params core.MintParams) (string, error)

	// PollStatus reports the current state of an in-flight mint.
	PollStatus(ctx context.Context, handle string) (core.MintStatus, error)

	// EstimateGas dry-runs an unsigned call and returns the gas required.
	// Failure means the transaction would revert; it must not be submitted.
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)

	// SuggestGasPrice returns the current gas price for fee accounting.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// PendingNonceAt returns the next nonce for the sender.
	PendingNonceAt(ctx context.Context, address string) (uint64, error)

	// Submit broadcasts a signed transaction and waits for its receipt.
	Submit(ctx context.Context, tx *types.Transaction) (core.TransactionReceipt, error)
}
