package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodykit/keystone/core"
)

func TestActiveSelectsMostRecentlyMinted(t *testing.T) {
	registry := newFakeRegistry()
	registry.listAccountsFn = func(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error) {
		return []core.ManagedKeyAccount{
			{TokenID: "1", PublicKey: "0xold"},
			{TokenID: "2", PublicKey: "0xnew"},
		}, nil
	}
	r := NewAccountResolver(registry)

	accounts, err := r.ListAccounts(context.Background(), core.AuthMethod{Type: core.AuthMethodTypeStytchOTP, RawCredential: "u:p"})
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	active, ok := r.Active(accounts)
	require.True(t, ok)
	assert.Equal(t, "2", active.TokenID)
}

func TestActiveWithNoAccounts(t *testing.T) {
	r := NewAccountResolver(newFakeRegistry())

	accounts, err := r.ListAccounts(context.Background(), core.AuthMethod{Type: core.AuthMethodTypeStytchOTP, RawCredential: "u:p"})
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, ok := r.Active(accounts)
	assert.False(t, ok)
}
