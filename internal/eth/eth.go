// Package eth holds small helpers around go-ethereum key and hash handling.
package eth

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveAddress computes the Ethereum address for an uncompressed secp256k1
// public key given as 0x-prefixed hex.
func DeriveAddress(publicKey string) (common.Address, error) {
	raw, err := hexutil.Decode(publicKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode public key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PayloadDigest returns the keccak256 digest signed on behalf of a managed
// key. The signing network signs digests, never raw payloads.
func PayloadDigest(payload []byte) []byte {
	return crypto.Keccak256(payload)
}
