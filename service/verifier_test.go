package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodykit/keystone/core"
)

func TestVerifyIsDeterministic(t *testing.T) {
	v := NewIdentityVerifier(&fakeIDP{})

	first, err := v.Verify(context.Background(), "proof-token", "")
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), "proof-token", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.NotEmpty(t, first.ID())
}

func TestVerifyRejectsEmptyProof(t *testing.T) {
	v := NewIdentityVerifier(&fakeIDP{})

	_, err := v.Verify(context.Background(), "", "")
	assert.ErrorIs(t, err, core.ErrAuthInvalid)
}

func TestVerifyPropagatesProviderRejection(t *testing.T) {
	idp := &fakeIDP{verifyFn: func(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error) {
		return core.AuthMethod{}, core.ErrAuthInvalid
	}}
	v := NewIdentityVerifier(idp)

	_, err := v.Verify(context.Background(), "expired-token", "")
	assert.ErrorIs(t, err, core.ErrAuthInvalid)
}
