package ports

import (
	"context"
	"time"
)

// Store records consumed identifiers with a TTL. It backs the claim
// idempotency guard: a derived key id is marked once its mint has been
// submitted so fund-moving retries can be detected.
type Store interface {
	MarkConsumed(ctx context.Context, id string, ttl time.Duration) error
	IsConsumed(ctx context.Context, id string) (bool, error)
}
