package ports

import (
	"context"

	"github.com/custodykit/keystone/core"
)

// SigningServiceClient submits signing/compute requests to the distributed
// signing network on behalf of a session credential.
type SigningServiceClient interface {
	Sign(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error)
}
