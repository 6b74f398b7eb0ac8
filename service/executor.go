package service

import (
	"context"
	"fmt"
	"time"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// ActionExecutor submits signing/compute requests to the distributed signing
// service under a session credential.
type ActionExecutor struct {
	signing ports.SigningServiceClient
	now     func() time.Time
}

// NewActionExecutor creates an action executor.
func NewActionExecutor(signing ports.SigningServiceClient) *ActionExecutor {
	return &ActionExecutor{signing: signing, now: time.Now}
}

// Execute triggers a remote signing operation for the payload against the
// target public key. The credential is rejected before any remote call when
// expired or when no capability covers signing for the target key.
func (e *ActionExecutor) Execute(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error) {
	if cred.Expired(e.now()) {
		return core.ExecutionResult{}, fmt.Errorf("credential expired at %s: %w", cred.ExpiresAt.Format(time.RFC3339), core.ErrSessionExpired)
	}
	if !cred.Permits(targetPublicKey, core.AbilitySign) {
		return core.ExecutionResult{}, fmt.Errorf("signing %s: %w", targetPublicKey, core.ErrInvalidCapability)
	}

	result, err := e.signing.Sign(ctx, cred, payload, targetPublicKey)
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("execute action: %w", err)
	}
	return result, nil
}
