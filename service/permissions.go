package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/internal/metrics"
	"github.com/custodykit/keystone/ports"
)

// permissionsABI is the fragment of the registry's permissions contract this
// service mutates.
const permissionsABI = `[{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"},{"components":[{"internalType":"uint256","name":"authMethodType","type":"uint256"},{"internalType":"bytes","name":"id","type":"bytes"},{"internalType":"bytes","name":"userPubkey","type":"bytes"}],"internalType":"struct LibPKPPermissionsStorage.AuthMethod","name":"authMethod","type":"tuple"},{"internalType":"uint256[]","name":"scopes","type":"uint256[]"}],"name":"addPermittedAuthMethod","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

type abiAuthMethod struct {
	AuthMethodType *big.Int
	Id             []byte
	UserPubkey     []byte
}

// PermissionManagerConfig carries the chain parameters for permission
// mutations.
type PermissionManagerConfig struct {
	Contract common.Address
	ChainID  *big.Int

	// FeeCeilingGwei caps gas price * gas limit. Zero disables the check.
	FeeCeilingGwei decimal.Decimal
}

// PermissionManager mutates the on-chain permitted auth method list for a
// managed key. Every submission is gated by a successful gas estimate, and at
// most one mutation per account is in flight at a time.
type PermissionManager struct {
	registry ports.RegistryClient
	signer   ports.TxSigner
	events   ports.EventPublisher
	metrics  *metrics.Metrics
	cfg      PermissionManagerConfig

	contractABI abi.ABI
	inflight    sync.Map // token id -> struct{}
}

// NewPermissionManager creates a permission manager. events and m may be nil.
func NewPermissionManager(registry ports.RegistryClient, signer ports.TxSigner, events ports.EventPublisher, m *metrics.Metrics, cfg PermissionManagerConfig) (*PermissionManager, error) {
	parsed, err := abi.JSON(strings.NewReader(permissionsABI))
	if err != nil {
		return nil, fmt.Errorf("parse permissions abi: %w", err)
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("permission manager requires a positive chain id")
	}
	return &PermissionManager{
		registry:    registry,
		signer:      signer,
		events:      events,
		metrics:     m,
		cfg:         cfg,
		contractABI: parsed,
	}, nil
}

// AddAuthMethod grants the new auth method the given scopes on the account's
// permission list. Protocol: build the unsigned call, estimate gas, and only
// then sign and submit with the estimated limit attached explicitly. An
// estimation failure aborts before anything is broadcast.
func (p *PermissionManager) AddAuthMethod(ctx context.Context, account core.ManagedKeyAccount, newType core.AuthMethodType, newIDHash string, scopes []core.Scope) (core.TransactionReceipt, error) {
	if _, busy := p.inflight.LoadOrStore(account.TokenID, struct{}{}); busy {
		return core.TransactionReceipt{}, fmt.Errorf("account %s: %w", account.TokenID, core.ErrOperationInProgress)
	}
	defer p.inflight.Delete(account.TokenID)

	data, err := p.packAddAuthMethod(account, newType, newIDHash, scopes)
	if err != nil {
		return core.TransactionReceipt{}, err
	}

	from := p.signer.Address()
	call := ethereum.CallMsg{
		From: from,
		To:   &p.cfg.Contract,
		Data: data,
	}

	gas, err := p.registry.EstimateGas(ctx, call)
	if err != nil {
		p.countTx("estimate_failed")
		if !errors.Is(err, core.ErrGasEstimationFailed) {
			err = fmt.Errorf("%v: %w", err, core.ErrGasEstimationFailed)
		}
		return core.TransactionReceipt{}, err
	}
	if p.metrics != nil {
		p.metrics.GasEstimated.Observe(float64(gas))
	}

	gasPrice, err := p.registry.SuggestGasPrice(ctx)
	if err != nil {
		p.countTx("submit_failed")
		return core.TransactionReceipt{}, err
	}

	if err := p.checkFeeCeiling(gas, gasPrice); err != nil {
		p.countTx("fee_rejected")
		return core.TransactionReceipt{}, err
	}

	nonce, err := p.registry.PendingNonceAt(ctx, from.Hex())
	if err != nil {
		p.countTx("submit_failed")
		return core.TransactionReceipt{}, err
	}

	tx := types.NewTransaction(nonce, p.cfg.Contract, big.NewInt(0), gas, gasPrice, data)
	signed, err := p.signer.SignTx(tx, p.cfg.ChainID)
	if err != nil {
		p.countTx("submit_failed")
		return core.TransactionReceipt{}, fmt.Errorf("sign permission tx: %w", err)
	}

	receipt, err := p.registry.Submit(ctx, signed)
	if err != nil {
		p.countTx("submit_failed")
		return receipt, err
	}
	p.countTx("succeeded")

	if p.events != nil {
		// Best effort: the chain already holds the grant.
		_ = p.events.PublishPermissionAdded(ctx, account.TokenID, core.PermissionRecord{
			AuthMethodType: newType,
			AuthMethodID:   newIDHash,
			Scopes:         scopes,
		})
	}
	return receipt, nil
}

func (p *PermissionManager) packAddAuthMethod(account core.ManagedKeyAccount, newType core.AuthMethodType, newIDHash string, scopes []core.Scope) ([]byte, error) {
	tokenID, ok := new(big.Int).SetString(account.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid account token id %q", account.TokenID)
	}
	idBytes, err := hexutil.Decode(newIDHash)
	if err != nil {
		return nil, fmt.Errorf("decode auth method id hash: %w", err)
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}

	scopeInts := make([]*big.Int, 0, len(scopes))
	for _, s := range scopes {
		scopeInts = append(scopeInts, big.NewInt(int64(s)))
	}

	data, err := p.contractABI.Pack("addPermittedAuthMethod", tokenID, abiAuthMethod{
		AuthMethodType: big.NewInt(int64(newType)),
		Id:             idBytes,
		UserPubkey:     []byte{},
	}, scopeInts)
	if err != nil {
		return nil, fmt.Errorf("pack addPermittedAuthMethod: %w", err)
	}
	return data, nil
}

func (p *PermissionManager) checkFeeCeiling(gas uint64, gasPrice *big.Int) error {
	if p.cfg.FeeCeilingGwei.IsZero() || gasPrice == nil {
		return nil
	}
	feeWei := decimal.NewFromBigInt(new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas)), 0)
	ceilingWei := p.cfg.FeeCeilingGwei.Mul(decimal.New(1, 9))
	if feeWei.GreaterThan(ceilingWei) {
		return fmt.Errorf("fee %s wei exceeds ceiling %s wei: %w", feeWei, ceilingWei, core.ErrFeeTooHigh)
	}
	return nil
}

func (p *PermissionManager) countTx(outcome string) {
	if p.metrics != nil {
		p.metrics.PermissionTxs.WithLabelValues(outcome).Inc()
	}
}
