package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/internal/eth"
	"github.com/custodykit/keystone/internal/metrics"
	"github.com/custodykit/keystone/ports"
)

// KeyTypeECDSA is the registry's key type for secp256k1 keys.
const KeyTypeECDSA uint8 = 2

// claimRecordTTL bounds how long a finalized derived key id is remembered for
// idempotency checks.
const claimRecordTTL = 24 * time.Hour

// Finalizer consumes a claim result exactly once: it constructs and submits
// the actual mint transaction and returns a handle for status polling.
// Separating the claim from the mint lets the funding party differ from the
// identity holder and makes the protocol resumable when only the mint step
// fails.
type Finalizer func(ctx context.Context, claim core.ClaimResult) (string, error)

// MinterConfig bounds the polling loop.
type MinterConfig struct {
	// PollInterval is the fixed delay between status polls.
	PollInterval time.Duration

	// MaxAttempts caps the number of status polls.
	MaxAttempts int

	// PollDeadline caps the wall-clock duration of the whole poll phase.
	PollDeadline time.Duration
}

// KeyMinter orchestrates claim-and-mint of a new managed key:
// claim, finalize, then poll until a terminal state.
type KeyMinter struct {
	registry ports.RegistryClient
	store    ports.Store
	metrics  *metrics.Metrics
	cfg      MinterConfig
}

// NewKeyMinter creates a key minter. m may be nil to disable instrumentation.
func NewKeyMinter(registry ports.RegistryClient, store ports.Store, m *metrics.Metrics, cfg MinterConfig) *KeyMinter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	if cfg.PollDeadline <= 0 {
		cfg.PollDeadline = 2 * time.Minute
	}
	return &KeyMinter{registry: registry, store: store, metrics: m, cfg: cfg}
}

// Finalizer returns the default finalizer: it submits the mint through the
// registry with the given parameters. Callers with a different funding
// strategy supply their own.
func (m *KeyMinter) Finalizer(params core.MintParams) Finalizer {
	return func(ctx context.Context, claim core.ClaimResult) (string, error) {
		return m.registry.SubmitMint(ctx, claim, params)
	}
}

// DefaultMintParams binds the claiming auth method with membership scope and
// permits the given action reference to sign on behalf of the key.
func DefaultMintParams(method core.AuthMethod, action core.ActionRef) core.MintParams {
	return core.MintParams{
		PermittedAuthMethods: []core.PermissionRecord{{
			AuthMethodType: method.Type,
			AuthMethodID:   method.ID(),
			Scopes:         []core.Scope{core.ScopeNoPermissions},
		}},
		Action:       action,
		ActionScopes: []core.Scope{core.ScopeSignAnything},
		SendToSelf:   true,
	}
}

// Mint runs the full claim-and-mint protocol and returns the new account.
// The finalizer is invoked at most once; a derived key id that was already
// finalized fails with ErrClaimConsumed so fund-moving retries are never
// blind.
func (m *KeyMinter) Mint(ctx context.Context, method core.AuthMethod, finalize Finalizer) (core.ManagedKeyAccount, error) {
	if m.metrics != nil {
		m.metrics.MintAttempts.Inc()
	}

	claim, err := m.registry.SubmitClaim(ctx, core.ClaimRequest{
		AuthMethod: method,
		KeyType:    KeyTypeECDSA,
	})
	if err != nil {
		return core.ManagedKeyAccount{}, fmt.Errorf("submit claim: %w", err)
	}

	consumed, err := m.store.IsConsumed(ctx, claimKey(claim.DerivedKeyID))
	if err != nil {
		return core.ManagedKeyAccount{}, fmt.Errorf("check claim record: %w", err)
	}
	if consumed {
		return core.ManagedKeyAccount{}, fmt.Errorf("derived key %s: %w", claim.DerivedKeyID, core.ErrClaimConsumed)
	}
	if err := m.store.MarkConsumed(ctx, claimKey(claim.DerivedKeyID), claimRecordTTL); err != nil {
		return core.ManagedKeyAccount{}, fmt.Errorf("record claim: %w", err)
	}

	handle, err := finalize(ctx, claim)
	if err != nil {
		return core.ManagedKeyAccount{}, fmt.Errorf("finalize mint: %w", err)
	}

	account, err := m.poll(ctx, handle)
	if err != nil {
		return core.ManagedKeyAccount{}, err
	}
	return account, nil
}

// poll watches the mint until a terminal state, bounded by attempt count and
// wall clock, and cancellable through ctx.
func (m *KeyMinter) poll(ctx context.Context, handle string) (core.ManagedKeyAccount, error) {
	pollCtx, cancel := context.WithTimeout(ctx, m.cfg.PollDeadline)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(m.cfg.PollInterval), 1)

	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return core.ManagedKeyAccount{}, ctx.Err()
			}
			// The limiter refuses waits that cannot finish before the
			// deadline, so the only remaining failure is the wall clock.
			m.countOutcome("timeout")
			return core.ManagedKeyAccount{}, fmt.Errorf("mint %s: %w", handle, core.ErrMintTimeout)
		}
		if m.metrics != nil {
			m.metrics.PollAttempts.Inc()
		}

		status, err := m.registry.PollStatus(pollCtx, handle)
		if err != nil {
			return core.ManagedKeyAccount{}, fmt.Errorf("poll mint status: %w", err)
		}

		switch status.State {
		case core.MintStateSucceeded:
			m.countOutcome("succeeded")
			return m.buildAccount(status)
		case core.MintStateFailed:
			m.countOutcome("failed")
			if status.Reason != "" {
				return core.ManagedKeyAccount{}, fmt.Errorf("%s: %w", status.Reason, core.ErrMintFailed)
			}
			return core.ManagedKeyAccount{}, core.ErrMintFailed
		case core.MintStatePending:
			// Keep polling.
		}
	}

	m.countOutcome("timeout")
	return core.ManagedKeyAccount{}, fmt.Errorf("mint %s after %d attempts: %w", handle, m.cfg.MaxAttempts, core.ErrMintTimeout)
}

func (m *KeyMinter) buildAccount(status core.MintStatus) (core.ManagedKeyAccount, error) {
	if status.Account == nil || status.Account.TokenID == "" {
		return core.ManagedKeyAccount{}, fmt.Errorf("succeeded status without account: %w", core.ErrMintFailed)
	}
	account := *status.Account
	if account.DerivedAddress == (common.Address{}) && account.PublicKey != "" {
		// Best effort: some relays omit the address field. A key that does
		// not parse as secp256k1 leaves the address zero.
		if derived, err := eth.DeriveAddress(account.PublicKey); err == nil {
			account.DerivedAddress = derived
		}
	}
	return account, nil
}

func (m *KeyMinter) countOutcome(state string) {
	if m.metrics != nil {
		m.metrics.MintOutcomes.WithLabelValues(state).Inc()
	}
}

func claimKey(derivedKeyID string) string {
	return "claim:" + derivedKeyID
}
