// Package rest exposes the entitlement registry over HTTP. Mutating routes
// sit behind API key authentication; reads and the health check are open.
package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/entitlement-registry/internal/api/middleware"
)

// SetupRoutes configures all API routes on the given router
func SetupRoutes(router *gin.Engine, handler *Handler, authCfg middleware.AuthConfig) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")

	// Reads observe committed state only and need no authentication
	v1.GET("/contents/:content_id", handler.Content)
	v1.GET("/entitlements/:holder/:content_id/validity", handler.Validity)
	v1.GET("/entitlements/:holder/:content_id/royalty", handler.Royalty)
	v1.GET("/providers/:address/fees", handler.FeeBalance)

	protected := v1.Group("")
	protected.Use(middleware.APIKeyAuth(authCfg))
	protected.POST("/entitlements/mint", handler.Mint)
	protected.POST("/entitlements/transfer", handler.Transfer)
	protected.POST("/providers/:address/withdrawals", handler.Withdraw)
	protected.PUT("/contents/:content_id/uri", handler.SetURI)
}
