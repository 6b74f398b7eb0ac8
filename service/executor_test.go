package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodykit/keystone/core"
)

func wildcardCred(expiresAt time.Time) core.SessionCredential {
	return core.SessionCredential{
		AccountTokenID:  "42",
		Capabilities:    []core.Capability{{Resource: "*", Ability: core.AbilitySign}},
		IssuedAt:        expiresAt.Add(-time.Hour),
		ExpiresAt:       expiresAt,
		SigningMaterial: "session-token",
	}
}

func TestExecuteRejectsExpiredCredential(t *testing.T) {
	signing := &fakeSigning{}
	e := NewActionExecutor(signing)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	cred := wildcardCred(now.Add(-time.Second))

	_, err := e.Execute(context.Background(), cred, []byte("perfectly valid payload"), "0xabc")
	assert.ErrorIs(t, err, core.ErrSessionExpired)
	assert.Equal(t, 0, signing.calls)
}

func TestExecuteRejectsMissingCapability(t *testing.T) {
	signing := &fakeSigning{}
	e := NewActionExecutor(signing)

	cred := wildcardCred(time.Now().Add(time.Hour))
	cred.Capabilities = []core.Capability{{Resource: "0xother", Ability: core.AbilitySign}}

	_, err := e.Execute(context.Background(), cred, []byte("payload"), "0xabc")
	assert.ErrorIs(t, err, core.ErrInvalidCapability)
	assert.Equal(t, 0, signing.calls)
}

func TestExecuteDelegatesToSigningService(t *testing.T) {
	signing := &fakeSigning{}
	e := NewActionExecutor(signing)

	result, err := e.Execute(context.Background(), wildcardCred(time.Now().Add(time.Hour)), []byte("payload"), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xsig", result.Signatures["sig1"])
	assert.Equal(t, 1, signing.calls)
}
