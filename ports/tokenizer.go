package ports

import "github.com/custodykit/keystone/core"

// Tokenizer converts session credentials to and from their serialized
// delegation proof.
type Tokenizer interface {
	CredentialToToken(cred *core.SessionCredential) (string, error)
	TokenToCredential(token string) (*core.SessionCredential, error)
}
