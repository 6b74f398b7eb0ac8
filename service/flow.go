package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// State is a step in the authentication-to-authorization flow.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateAccountResolved State = "account_resolved"
	StateSessionActive   State = "session_active"
)

// Observer is notified after each state transition. Observers must not block;
// they run synchronously on the transitioning goroutine.
type Observer func(from, to State)

// Orchestrator wires the flow components behind the exposed operations and
// tracks the caller's progress through the flow as an explicit state machine.
// Any rendering layer observes transitions; it never drives them.
type Orchestrator struct {
	verifier    *IdentityVerifier
	resolver    *AccountResolver
	minter      *KeyMinter
	issuer      *SessionIssuer
	permissions *PermissionManager
	executor    *ActionExecutor
	events      ports.EventPublisher

	// action is the reference permitted at mint time for new accounts.
	action core.ActionRef

	mu        sync.Mutex
	state     State
	observers []Observer
	session   *core.SessionCredential
}

// NewOrchestrator assembles the flow. events may be nil.
func NewOrchestrator(
	verifier *IdentityVerifier,
	resolver *AccountResolver,
	minter *KeyMinter,
	issuer *SessionIssuer,
	permissions *PermissionManager,
	executor *ActionExecutor,
	events ports.EventPublisher,
	action core.ActionRef,
) *Orchestrator {
	return &Orchestrator{
		verifier:    verifier,
		resolver:    resolver,
		minter:      minter,
		issuer:      issuer,
		permissions: permissions,
		executor:    executor,
		events:      events,
		action:      action,
		state:       StateUnauthenticated,
	}
}

// Subscribe registers an observer for state transitions.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, obs)
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	if from == to {
		return
	}
	for _, obs := range observers {
		obs(from, to)
	}
}

// ResolveIdentity converts a raw identity proof into a normalized auth
// method and moves the flow to Authenticated.
func (o *Orchestrator) ResolveIdentity(ctx context.Context, proofToken, userIDHint string) (core.AuthMethod, error) {
	method, err := o.verifier.Verify(ctx, proofToken, userIDHint)
	if err != nil {
		return core.AuthMethod{}, err
	}
	o.transition(StateAuthenticated)
	return method, nil
}

// GetOrCreateAccount resolves the managed key account for the auth method,
// minting one when none exists, and moves the flow to AccountResolved. When
// the registry already holds accounts the most recently minted one is
// selected and the mint path is never entered.
func (o *Orchestrator) GetOrCreateAccount(ctx context.Context, method core.AuthMethod) (core.ManagedKeyAccount, error) {
	accounts, err := o.resolver.ListAccounts(ctx, method)
	if err != nil {
		return core.ManagedKeyAccount{}, err
	}

	if active, ok := o.resolver.Active(accounts); ok {
		o.transition(StateAccountResolved)
		return active, nil
	}

	params := DefaultMintParams(method, o.action)
	account, err := o.minter.Mint(ctx, method, o.minter.Finalizer(params))
	if err != nil {
		return core.ManagedKeyAccount{}, err
	}

	if o.events != nil {
		// Best effort: the account exists on-chain regardless.
		_ = o.events.PublishAccountMinted(ctx, account)
	}
	o.transition(StateAccountResolved)
	return account, nil
}

// IssueSession derives a capability-scoped session credential and moves the
// flow to SessionActive.
func (o *Orchestrator) IssueSession(ctx context.Context, method core.AuthMethod, account core.ManagedKeyAccount, capabilities []core.Capability, ttl time.Duration) (core.SessionCredential, error) {
	cred, err := o.issuer.IssueSession(ctx, method, account, capabilities, ttl)
	if err != nil {
		return core.SessionCredential{}, err
	}

	o.mu.Lock()
	o.session = &cred
	o.mu.Unlock()
	o.transition(StateSessionActive)
	return cred, nil
}

// ExecuteAction submits a signing request under the session credential.
func (o *Orchestrator) ExecuteAction(ctx context.Context, cred core.SessionCredential, payload []byte, targetPublicKey string) (core.ExecutionResult, error) {
	return o.executor.Execute(ctx, cred, payload, targetPublicKey)
}

// AddAuthMethod grants a new auth method on the account's permission list.
func (o *Orchestrator) AddAuthMethod(ctx context.Context, account core.ManagedKeyAccount, newType core.AuthMethodType, newIDHash string, scopes []core.Scope) (core.TransactionReceipt, error) {
	return o.permissions.AddAuthMethod(ctx, account, newType, newIDHash, scopes)
}

// Logout discards the in-memory session and resets the flow. The auth method
// and credential live only for the caller's session; nothing durable remains.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.mu.Lock()
	session := o.session
	o.session = nil
	o.mu.Unlock()

	if session != nil && o.events != nil {
		if err := o.events.PublishSessionRevoked(ctx, session.AccountTokenID, session.ID); err != nil {
			// The session is gone locally either way.
			fmt.Printf("Warning: failed to publish session revoked event: %v\n", err)
		}
	}
	o.transition(StateUnauthenticated)
	return nil
}
