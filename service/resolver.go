package service

import (
	"context"
	"fmt"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// AccountResolver looks up existing managed key accounts for an auth method.
// Absence of accounts is an expected, non-exceptional case: it triggers the
// minting path.
type AccountResolver struct {
	registry ports.RegistryClient
}

// NewAccountResolver creates a new account resolver.
func NewAccountResolver(registry ports.RegistryClient) *AccountResolver {
	return &AccountResolver{registry: registry}
}

// ListAccounts returns the accounts bound to the auth method, oldest first by
// mint order. An empty slice means no account exists yet.
func (r *AccountResolver) ListAccounts(ctx context.Context, method core.AuthMethod) ([]core.ManagedKeyAccount, error) {
	accounts, err := r.registry.ListAccounts(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Active selects the account to operate from a lookup result: the most
// recently minted one. Older accounts remain retrievable but are not
// auto-selected.
func (r *AccountResolver) Active(accounts []core.ManagedKeyAccount) (core.ManagedKeyAccount, bool) {
	if len(accounts) == 0 {
		return core.ManagedKeyAccount{}, false
	}
	return accounts[len(accounts)-1], true
}
