package ports

import (
	"context"

	"github.com/custodykit/keystone/core"
)

// IdentityProviderClient exchanges a third-party proof token for a normalized
// auth method. Verification has no side effects beyond the remote call.
type IdentityProviderClient interface {
	// Verify validates the proof token with the provider. userIDHint narrows
	// the lookup when the provider session covers several identities; it may
	// be empty. Returns core.ErrAuthInvalid when the provider rejects the
	// proof.
	Verify(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error)
}
