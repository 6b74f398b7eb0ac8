package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/custodykit/keystone/core"
)

// ChainBackend is the subset of the Ethereum RPC client the registry needs.
// *ethclient.Client satisfies it.
type ChainBackend interface {
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// receiptPollInterval paces receipt lookups after submission.
const receiptPollInterval = 2 * time.Second

// EstimateGas dry-runs the call against the chain. Any failure maps to
// ErrGasEstimationFailed so callers never submit a transaction the chain
// already rejected.
func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	gas, err := c.chain.EstimateGas(ctx, call)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, core.ErrGasEstimationFailed)
	}
	return gas, nil
}

// SuggestGasPrice returns the chain's current gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", core.ErrProviderUnavailable)
	}
	return price, nil
}

// PendingNonceAt returns the next nonce for the sender address.
func (c *Client) PendingNonceAt(ctx context.Context, address string) (uint64, error) {
	nonce, err := c.chain.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return 0, fmt.Errorf("pending nonce: %w", core.ErrProviderUnavailable)
	}
	return nonce, nil
}

// Submit broadcasts the signed transaction and waits for its receipt. A mined
// receipt with failed status is reported via ErrTransactionFailed together
// with the receipt detail.
func (c *Client) Submit(ctx context.Context, tx *types.Transaction) (core.TransactionReceipt, error) {
	if err := c.chain.SendTransaction(ctx, tx); err != nil {
		return core.TransactionReceipt{}, fmt.Errorf("send transaction: %w", core.ErrProviderUnavailable)
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.chain.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			out := core.TransactionReceipt{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
				Reverted:    receipt.Status == types.ReceiptStatusFailed,
			}
			if out.Reverted {
				return out, fmt.Errorf("tx %s reverted in block %s: %w", out.TxHash, out.BlockNumber, core.ErrTransactionFailed)
			}
			return out, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return core.TransactionReceipt{}, fmt.Errorf("fetch receipt: %w", core.ErrProviderUnavailable)
		}

		select {
		case <-ctx.Done():
			return core.TransactionReceipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
