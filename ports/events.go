package ports

import (
	"context"

	"github.com/custodykit/keystone/core"
)

// EventPublisher notifies other instances about key lifecycle changes.
type EventPublisher interface {
	PublishAccountMinted(ctx context.Context, account core.ManagedKeyAccount) error
	PublishPermissionAdded(ctx context.Context, tokenID string, record core.PermissionRecord) error
	PublishSessionRevoked(ctx context.Context, tokenID, credentialID string) error
}
