package core

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AuthMethodType identifies the kind of identity proof backing an AuthMethod.
// Values follow the registry's on-chain enumeration.
type AuthMethodType uint32

const (
	// AuthMethodTypeEthWallet is a plain Ethereum wallet signature proof.
	AuthMethodTypeEthWallet AuthMethodType = 1

	// AuthMethodTypeAction is a content-addressed action reference permitted
	// to operate a managed key.
	AuthMethodTypeAction AuthMethodType = 2

	// AuthMethodTypeStytchOTP is an OTP session proof verified by the
	// identity provider.
	AuthMethodTypeStytchOTP AuthMethodType = 9
)

// AuthMethod is a normalized identity proof accepted by the registry.
// RawCredential is the provider-normalized credential string; its hash is the
// stable identity key used on-chain.
type AuthMethod struct {
	Type          AuthMethodType
	RawCredential string
}

// ID returns the deterministic auth method identifier: the keccak256 hash of
// the raw credential, hex-encoded with 0x prefix. It is a pure function of
// RawCredential, so repeated verification of the same proof yields a
// comparable identity key.
func (a AuthMethod) ID() string {
	return hexutil.Encode(crypto.Keccak256([]byte(a.RawCredential)))
}

// Ability is the class of operation a capability permits.
type Ability string

const (
	AbilitySign    Ability = "sign"
	AbilityExecute Ability = "execute"
)

// Capability grants one ability over a resource pattern. A resource of "*"
// matches every resource of that ability.
type Capability struct {
	Resource string  `json:"resource"`
	Ability  Ability `json:"ability"`
}

// Matches reports whether the capability covers the given resource and
// ability.
func (c Capability) Matches(resource string, ability Ability) bool {
	if c.Ability != ability {
		return false
	}
	if c.Resource == "*" {
		return true
	}
	return strings.EqualFold(c.Resource, resource)
}
