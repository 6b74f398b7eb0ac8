package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// DefaultSessionTTL is used when the caller passes no TTL.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionIssuer derives short-lived, capability-scoped session credentials.
// Issuance has no on-chain side effect: it only packages a delegation proof
// usable while valid.
type SessionIssuer struct {
	tokenizer ports.Tokenizer
	now       func() time.Time
}

// NewSessionIssuer creates a session issuer.
func NewSessionIssuer(tokenizer ports.Tokenizer) *SessionIssuer {
	return &SessionIssuer{tokenizer: tokenizer, now: time.Now}
}

// IssueSession packages a delegation for the account limited to the given
// capabilities and TTL. ExpiresAt is strictly IssuedAt + ttl.
func (s *SessionIssuer) IssueSession(ctx context.Context, method core.AuthMethod, account core.ManagedKeyAccount, capabilities []core.Capability, ttl time.Duration) (core.SessionCredential, error) {
	if method.RawCredential == "" {
		return core.SessionCredential{}, fmt.Errorf("issue session: %w", core.ErrAuthInvalid)
	}
	if account.TokenID == "" {
		return core.SessionCredential{}, fmt.Errorf("issue session: account has no token id")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if len(capabilities) == 0 {
		return core.SessionCredential{}, fmt.Errorf("issue session: %w", core.ErrInvalidCapability)
	}
	for _, c := range capabilities {
		if c.Resource == "" || (c.Ability != core.AbilitySign && c.Ability != core.AbilityExecute) {
			return core.SessionCredential{}, fmt.Errorf("capability %q/%q: %w", c.Resource, c.Ability, core.ErrInvalidCapability)
		}
	}

	issuedAt := s.now()
	cred := core.SessionCredential{
		ID:             uuid.New().String(),
		AccountTokenID: account.TokenID,
		Capabilities:   capabilities,
		IssuedAt:       issuedAt,
		ExpiresAt:      issuedAt.Add(ttl),
	}

	token, err := s.tokenizer.CredentialToToken(&cred)
	if err != nil {
		return core.SessionCredential{}, fmt.Errorf("serialize session credential: %w", err)
	}
	cred.SigningMaterial = token
	return cred, nil
}
