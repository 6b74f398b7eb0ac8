package core

import "errors"

var (
	// ErrAuthInvalid is returned when the identity provider rejects a proof
	// (expired, forged, or already consumed).
	ErrAuthInvalid = errors.New("identity proof rejected")

	// ErrMintFailed is returned when the registry reports a terminal mint
	// failure.
	ErrMintFailed = errors.New("mint failed")

	// ErrMintTimeout is returned when polling exceeds its bound while the
	// mint is still pending. The caller may retry.
	ErrMintTimeout = errors.New("mint still pending after polling deadline")

	// ErrGasEstimationFailed is returned when gas estimation for an on-chain
	// mutation fails; the transaction is never submitted.
	ErrGasEstimationFailed = errors.New("gas estimation failed")

	// ErrTransactionFailed is returned when a submitted transaction was
	// accepted but reverted.
	ErrTransactionFailed = errors.New("transaction reverted")

	// ErrSessionExpired is returned when a session credential is used after
	// its expiry.
	ErrSessionExpired = errors.New("session credential expired")

	// ErrProviderUnavailable is returned on transport failure against any
	// remote collaborator.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrOperationInProgress is returned when a second on-chain mutation is
	// attempted for an account that already has one in flight.
	ErrOperationInProgress = errors.New("operation already in progress for account")

	// ErrClaimConsumed is returned when a claim's derived key identifier has
	// already been finalized.
	ErrClaimConsumed = errors.New("claim already consumed")

	// ErrFeeTooHigh is returned when the estimated transaction fee exceeds
	// the configured ceiling.
	ErrFeeTooHigh = errors.New("estimated fee exceeds ceiling")

	// ErrInvalidCapability is returned when a session credential does not
	// cover the requested resource and ability.
	ErrInvalidCapability = errors.New("capability not granted")

	// ErrInvalidCredential is returned when a session credential cannot be
	// parsed or its signature does not verify.
	ErrInvalidCredential = errors.New("invalid session credential")
)
