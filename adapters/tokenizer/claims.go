package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/custodykit/keystone/core"
)

// SessionClaims combines standard claims with the delegation-specific ones.
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountTokenID string            `json:"acct"`
	Capabilities   []core.Capability `json:"cap"`
}
