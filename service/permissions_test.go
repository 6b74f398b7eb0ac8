package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodykit/keystone/adapters/signer"
	"github.com/custodykit/keystone/core"
)

const newMethodIDHash = "0x9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658"

var permAccount = core.ManagedKeyAccount{TokenID: "7", PublicKey: "0xabc"}

func newTestPermissionManager(t *testing.T, registry *fakeRegistry, ceiling decimal.Decimal) *PermissionManager {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	p, err := NewPermissionManager(registry, signer.FromKey(key), &fakeEvents{}, nil, PermissionManagerConfig{
		Contract:       common.HexToAddress("0x4f84b9cbA9b46c04718e5d0b6C2e09E597bb4a2b"),
		ChainID:        big.NewInt(175177),
		FeeCeilingGwei: ceiling,
	})
	require.NoError(t, err)
	return p
}

func TestAddAuthMethodSubmitsWithEstimatedGasLimit(t *testing.T) {
	registry := newFakeRegistry()
	const estimated uint64 = 54321
	registry.estimateGasFn = func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
		assert.NotEmpty(t, call.Data)
		return estimated, nil
	}
	registry.pendingNonceFn = func(ctx context.Context, address string) (uint64, error) {
		return 7, nil
	}
	var submitted *types.Transaction
	registry.submitFn = func(ctx context.Context, tx *types.Transaction) (core.TransactionReceipt, error) {
		submitted = tx
		return core.TransactionReceipt{TxHash: tx.Hash(), BlockNumber: big.NewInt(10), GasUsed: tx.Gas()}, nil
	}
	p := newTestPermissionManager(t, registry, decimal.Zero)

	receipt, err := p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
	require.NoError(t, err)

	require.NotNil(t, submitted)
	assert.Equal(t, estimated, submitted.Gas())
	assert.Equal(t, uint64(7), submitted.Nonce())
	assert.Equal(t, big.NewInt(10), receipt.BlockNumber)
	assert.Equal(t, 1, registry.callCount("EstimateGas"))
	assert.Equal(t, 1, registry.callCount("Submit"))
}

func TestAddAuthMethodNeverSubmitsOnEstimationFailure(t *testing.T) {
	registry := newFakeRegistry()
	registry.estimateGasFn = func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
		return 0, errors.New("insufficient funds")
	}
	p := newTestPermissionManager(t, registry, decimal.Zero)

	_, err := p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
	assert.ErrorIs(t, err, core.ErrGasEstimationFailed)
	assert.Equal(t, 0, registry.callCount("Submit"))
}

func TestAddAuthMethodRejectsConcurrentMutationForSameAccount(t *testing.T) {
	registry := newFakeRegistry()
	entered := make(chan struct{})
	release := make(chan struct{})
	registry.estimateGasFn = func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
		close(entered)
		<-release
		return 21000, nil
	}
	p := newTestPermissionManager(t, registry, decimal.Zero)

	done := make(chan error, 1)
	go func() {
		_, err := p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
		done <- err
	}()
	<-entered

	_, err := p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
	assert.ErrorIs(t, err, core.ErrOperationInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestAddAuthMethodEnforcesFeeCeiling(t *testing.T) {
	registry := newFakeRegistry()
	registry.estimateGasFn = func(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
		return 100_000, nil
	}
	registry.suggestGasPriceFn = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(2_000_000_000), nil // 2 gwei
	}
	// 100k gas at 2 gwei is 200k gwei total; ceiling is far below.
	p := newTestPermissionManager(t, registry, decimal.NewFromInt(1000))

	_, err := p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
	assert.ErrorIs(t, err, core.ErrFeeTooHigh)
	assert.Equal(t, 0, registry.callCount("Submit"))
}

func TestAddAuthMethodRejectsMalformedInput(t *testing.T) {
	p := newTestPermissionManager(t, newFakeRegistry(), decimal.Zero)

	_, err := p.AddAuthMethod(context.Background(), core.ManagedKeyAccount{TokenID: "not-a-number"}, core.AuthMethodTypeStytchOTP, newMethodIDHash, []core.Scope{core.ScopePersonalSign})
	assert.Error(t, err)

	_, err = p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, "not-hex", []core.Scope{core.ScopePersonalSign})
	assert.Error(t, err)

	_, err = p.AddAuthMethod(context.Background(), permAccount, core.AuthMethodTypeStytchOTP, newMethodIDHash, nil)
	assert.Error(t, err)
}
