package core

import "time"

// SessionCredential is a time- and capability-scoped delegation permitting
// signing without re-presenting the original identity proof. It is never
// renewed, only reissued.
type SessionCredential struct {
	// ID uniquely identifies this issuance.
	ID string

	// AccountTokenID is the managed key account the session operates.
	AccountTokenID string

	// Capabilities the session may exercise.
	Capabilities []Capability

	IssuedAt  time.Time
	ExpiresAt time.Time

	// SigningMaterial is the serialized delegation proof presented to the
	// signing service (a signed JWT).
	SigningMaterial string
}

// Expired reports whether the credential is no longer usable at now.
func (s SessionCredential) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Permits reports whether any capability covers the resource and ability.
func (s SessionCredential) Permits(resource string, ability Ability) bool {
	for _, c := range s.Capabilities {
		if c.Matches(resource, ability) {
			return true
		}
	}
	return false
}

// ExecutionResult is the outcome of a remote signing/compute operation.
type ExecutionResult struct {
	// Signatures produced by the operation, keyed by signature name.
	Signatures map[string]string `json:"signatures"`

	// Response is structured data returned by the executed action.
	Response map[string]any `json:"response"`
}
