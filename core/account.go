package core

import "github.com/ethereum/go-ethereum/common"

// ManagedKeyAccount is one custodial keypair controlled through the
// distributed signing network. Exactly one public key exists per account and
// the fields are immutable once minted.
type ManagedKeyAccount struct {
	// TokenID is the registry token identifying the account, decimal string.
	TokenID string `json:"tokenId"`

	// PublicKey is the uncompressed secp256k1 public key, 0x-prefixed hex.
	PublicKey string `json:"publicKey"`

	// DerivedAddress is the Ethereum address derived from PublicKey.
	DerivedAddress common.Address `json:"derivedAddress"`
}

// Scope is an on-chain permission scope granted to an auth method.
type Scope uint8

const (
	// ScopeNoPermissions registers the auth method without granting signing
	// rights; membership alone is enough to claim the key.
	ScopeNoPermissions Scope = 0

	// ScopeSignAnything permits signing arbitrary payloads.
	ScopeSignAnything Scope = 1

	// ScopePersonalSign permits personal-sign style message signing only.
	ScopePersonalSign Scope = 2
)

// PermissionRecord is one on-chain grant on a managed key's permitted auth
// method list. Additions require a prior successful gas estimate.
type PermissionRecord struct {
	AuthMethodType AuthMethodType
	AuthMethodID   string
	Scopes         []Scope
}
