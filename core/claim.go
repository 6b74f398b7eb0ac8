package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimSignature is one node's share of the claim attestation.
type ClaimSignature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// ClaimRequest asks the registry to derive a key identifier for an auth
// method. The funding signer pays for the subsequent mint and may belong to a
// different party than the identity holder.
type ClaimRequest struct {
	AuthMethod AuthMethod
	KeyType    uint8
}

// ClaimResult is the registry's proof of eligibility for a mint. It is
// ephemeral and must be consumed exactly once by a finalizer, which builds and
// submits the actual mint transaction.
type ClaimResult struct {
	DerivedKeyID string
	Signatures   []ClaimSignature
	KeyType      uint8
}

// ActionRefKind discriminates the two ways a permitted action can be
// referenced in mint parameters.
type ActionRefKind uint8

const (
	// ActionRefInline embeds the action payload directly.
	ActionRefInline ActionRefKind = iota + 1

	// ActionRefCID references content-addressed action code.
	ActionRefCID
)

// ActionRef is a tagged reference to the action code permitted to operate the
// key: either an inline payload or a content identifier, never both.
type ActionRef struct {
	Kind   ActionRefKind
	Inline []byte
	CID    string
}

// MintParams describe the permission list bound to a key at mint time.
type MintParams struct {
	PermittedAuthMethods []PermissionRecord
	Action               ActionRef
	ActionScopes         []Scope

	// AddDerivedAddress also permits the key's own derived address.
	AddDerivedAddress bool

	// SendToSelf transfers the minted token to the key's derived address.
	SendToSelf bool
}

// MintState is a polling status reported by the registry. Pending is
// non-terminal; Succeeded and Failed end the poll loop.
type MintState string

const (
	MintStatePending   MintState = "Pending"
	MintStateSucceeded MintState = "Succeeded"
	MintStateFailed    MintState = "Failed"
)

// Terminal reports whether the state ends polling.
func (s MintState) Terminal() bool {
	return s == MintStateSucceeded || s == MintStateFailed
}

// MintStatus is one observation of an in-flight mint. Account fields are set
// only when State is Succeeded.
type MintStatus struct {
	State   MintState
	Account *ManagedKeyAccount
	Reason  string
}

// TransactionReceipt is the outcome of an accepted on-chain submission.
type TransactionReceipt struct {
	TxHash      common.Hash
	BlockNumber *big.Int
	GasUsed     uint64
	Reverted    bool
}
