package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
	"github.com/custodykit/keystone/service"
)

// Handlers contains the HTTP handlers for the orchestrator's exposed
// operations.
type Handlers struct {
	flow      *service.Orchestrator
	tokenizer ports.Tokenizer
}

// NewHandlers creates the handler set.
func NewHandlers(flow *service.Orchestrator, tokenizer ports.Tokenizer) *Handlers {
	return &Handlers{flow: flow, tokenizer: tokenizer}
}

type authMethodPayload struct {
	Type          uint32 `json:"type" binding:"required"`
	RawCredential string `json:"rawCredential" binding:"required"`
}

func (p authMethodPayload) toCore() core.AuthMethod {
	return core.AuthMethod{
		Type:          core.AuthMethodType(p.Type),
		RawCredential: p.RawCredential,
	}
}

type accountPayload struct {
	TokenID        string `json:"tokenId" binding:"required"`
	PublicKey      string `json:"publicKey"`
	DerivedAddress string `json:"derivedAddress"`
}

// VerifyIdentity handles POST /v1/auth/verify.
func (h *Handlers) VerifyIdentity(c *gin.Context) {
	var req struct {
		ProofToken string `json:"proofToken" binding:"required"`
		UserIDHint string `json:"userIdHint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	method, err := h.flow.ResolveIdentity(c.Request.Context(), req.ProofToken, req.UserIDHint)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":          uint32(method.Type),
		"rawCredential": method.RawCredential,
		"authMethodId":  method.ID(),
	})
}

// ResolveAccount handles POST /v1/accounts/resolve.
func (h *Handlers) ResolveAccount(c *gin.Context) {
	var req struct {
		AuthMethod authMethodPayload `json:"authMethod" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.flow.GetOrCreateAccount(c.Request.Context(), req.AuthMethod.toCore())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokenId":        account.TokenID,
		"publicKey":      account.PublicKey,
		"derivedAddress": account.DerivedAddress.Hex(),
	})
}

// IssueSession handles POST /v1/sessions.
func (h *Handlers) IssueSession(c *gin.Context) {
	var req struct {
		AuthMethod   authMethodPayload `json:"authMethod" binding:"required"`
		Account      accountPayload    `json:"account" binding:"required"`
		Capabilities []core.Capability `json:"capabilities" binding:"required"`
		TTLSeconds   int64             `json:"ttlSeconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account := core.ManagedKeyAccount{
		TokenID:   req.Account.TokenID,
		PublicKey: req.Account.PublicKey,
	}

	cred, err := h.flow.IssueSession(
		c.Request.Context(),
		req.AuthMethod.toCore(),
		account,
		req.Capabilities,
		time.Duration(req.TTLSeconds)*time.Second,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credential": cred.SigningMaterial,
		"expiresAt":  cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ExecuteAction handles POST /v1/actions/execute.
func (h *Handlers) ExecuteAction(c *gin.Context) {
	var req struct {
		Credential      string `json:"credential" binding:"required"`
		Payload         string `json:"payload" binding:"required"`
		TargetPublicKey string `json:"targetPublicKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	cred, err := h.tokenizer.TokenToCredential(req.Credential)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.flow.ExecuteAction(c.Request.Context(), *cred, []byte(req.Payload), req.TargetPublicKey)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddAuthMethod handles POST /v1/accounts/:tokenId/auth-methods.
func (h *Handlers) AddAuthMethod(c *gin.Context) {
	var req struct {
		AuthMethodType   uint32  `json:"authMethodType" binding:"required"`
		AuthMethodIDHash string  `json:"authMethodIdHash" binding:"required"`
		Scopes           []uint8 `json:"scopes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	scopes := make([]core.Scope, 0, len(req.Scopes))
	for _, s := range req.Scopes {
		scopes = append(scopes, core.Scope(s))
	}

	account := core.ManagedKeyAccount{TokenID: c.Param("tokenId")}
	receipt, err := h.flow.AddAuthMethod(c.Request.Context(), account, core.AuthMethodType(req.AuthMethodType), req.AuthMethodIDHash, scopes)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"txHash":      receipt.TxHash.Hex(),
		"blockNumber": receipt.BlockNumber.String(),
		"gasUsed":     receipt.GasUsed,
	})
}

// Logout handles POST /v1/auth/logout.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.flow.Logout(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /v1/me. The session middleware has already validated the
// credential.
func (h *Handlers) Me(c *gin.Context) {
	cred, exists := sessionFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accountTokenId": cred.AccountTokenID,
		"capabilities":   cred.Capabilities,
		"expiresAt":      cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// abortWithError maps taxonomy kinds to HTTP status codes. Internal provider
// detail stays out of responses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, core.ErrAuthInvalid):
		status, msg = http.StatusUnauthorized, "identity proof rejected"
	case errors.Is(err, core.ErrSessionExpired):
		status, msg = http.StatusUnauthorized, "session expired"
	case errors.Is(err, core.ErrInvalidCredential):
		status, msg = http.StatusUnauthorized, "invalid session credential"
	case errors.Is(err, core.ErrInvalidCapability):
		status, msg = http.StatusForbidden, "capability not granted"
	case errors.Is(err, core.ErrOperationInProgress):
		status, msg = http.StatusConflict, "operation already in progress"
	case errors.Is(err, core.ErrClaimConsumed):
		status, msg = http.StatusConflict, "claim already consumed"
	case errors.Is(err, core.ErrGasEstimationFailed):
		status, msg = http.StatusUnprocessableEntity, "gas estimation failed"
	case errors.Is(err, core.ErrFeeTooHigh):
		status, msg = http.StatusUnprocessableEntity, "estimated fee exceeds ceiling"
	case errors.Is(err, core.ErrMintTimeout):
		status, msg = http.StatusGatewayTimeout, "mint still pending"
	case errors.Is(err, core.ErrMintFailed):
		status, msg = http.StatusBadGateway, "mint failed"
	case errors.Is(err, core.ErrTransactionFailed):
		status, msg = http.StatusBadGateway, "transaction reverted"
	case errors.Is(err, core.ErrProviderUnavailable):
		status, msg = http.StatusServiceUnavailable, "upstream provider unavailable"
	}

	c.JSON(status, gin.H{"error": msg})
}
