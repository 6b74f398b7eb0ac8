// Package signer provides a local ECDSA funding signer.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/custodykit/keystone/ports"
)

// Local signs transactions with an in-process secp256k1 key.
type Local struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocal creates a signer from a hex-encoded private key.
func NewLocal(hexKey string) (*Local, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Local{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// FromKey wraps an already-parsed private key.
func FromKey(key *ecdsa.PrivateKey) *Local {
	return &Local{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

var _ ports.TxSigner = (*Local)(nil)

// Address returns the signer's Ethereum address.
func (l *Local) Address() common.Address {
	return l.address
}

// SignTx signs the transaction with EIP-155 replay protection.
func (l *Local) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), l.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
