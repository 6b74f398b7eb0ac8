package service

import (
	"context"
	"fmt"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// IdentityVerifier converts a raw identity proof into a normalized auth
// method via the identity provider.
type IdentityVerifier struct {
	idp ports.IdentityProviderClient
}

// NewIdentityVerifier creates a new identity verifier.
func NewIdentityVerifier(idp ports.IdentityProviderClient) *IdentityVerifier {
	return &IdentityVerifier{idp: idp}
}

// Verify validates the proof token with the provider and returns the
// normalized auth method. The resulting auth method id is a pure function of
// the normalized credential, so verifying the same proof twice yields the
// same identity key.
func (v *IdentityVerifier) Verify(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error) {
	if proofToken == "" {
		return core.AuthMethod{}, fmt.Errorf("empty proof token: %w", core.ErrAuthInvalid)
	}

	method, err := v.idp.Verify(ctx, proofToken, userIDHint)
	if err != nil {
		return core.AuthMethod{}, fmt.Errorf("verify identity proof: %w", err)
	}
	if method.RawCredential == "" {
		return core.AuthMethod{}, fmt.Errorf("provider returned empty credential: %w", core.ErrAuthInvalid)
	}
	return method, nil
}
