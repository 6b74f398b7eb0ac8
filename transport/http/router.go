package http

import (
	"github.com/gin-gonic/gin"

	"github.com/custodykit/keystone/ports"
	"github.com/custodykit/keystone/service"
)

// SetupRouter sets up the Gin router for the orchestrator.
func SetupRouter(flow *service.Orchestrator, tokenizer ports.Tokenizer) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(flow, tokenizer)

	v1 := router.Group("/v1")
	{
		v1.POST("/auth/verify", handlers.VerifyIdentity)
		v1.POST("/auth/logout", handlers.Logout)
		v1.POST("/accounts/resolve", handlers.ResolveAccount)
		v1.POST("/sessions", handlers.IssueSession)
		v1.POST("/actions/execute", handlers.ExecuteAction)
		v1.POST("/accounts/:tokenId/auth-methods", handlers.AddAuthMethod)
	}

	protected := router.Group("/v1")
	protected.Use(SessionMiddleware(tokenizer))
	{
		protected.GET("/me", handlers.Me)
	}

	return router
}
