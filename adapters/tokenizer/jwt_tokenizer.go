package tokenizer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

// AudienceSession marks tokens carrying a session delegation.
const AudienceSession = "keystone:session"

// JWTTokenizer implements the Tokenizer interface using JWT.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// CredentialToToken serializes a session credential into a signed JWT.
func (j *JWTTokenizer) CredentialToToken(cred *core.SessionCredential) (string, error) {
	id := cred.ID
	if id == "" {
		id = uuid.New().String()
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.AccountTokenID,
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(cred.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		AccountTokenID: cred.AccountTokenID,
		Capabilities:   cred.Capabilities,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signedToken, nil
}

// TokenToCredential parses a JWT back into a session credential. Expiry is
// not enforced here; callers check it so an expired credential still maps to
// core.ErrSessionExpired rather than a parse failure.
func (j *JWTTokenizer) TokenToCredential(tokenStr string) (*core.SessionCredential, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithoutClaimsValidation())

	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", core.ErrInvalidCredential)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrInvalidCredential
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != AudienceSession {
		return nil, core.ErrInvalidCredential
	}

	cred := &core.SessionCredential{
		ID:              claims.ID,
		AccountTokenID:  claims.AccountTokenID,
		Capabilities:    claims.Capabilities,
		IssuedAt:        claims.IssuedAt.Time,
		ExpiresAt:       claims.ExpiresAt.Time,
		SigningMaterial: tokenStr,
	}
	return cred, nil
}
