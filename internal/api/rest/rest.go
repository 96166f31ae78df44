package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/tradeforge/ledger-core/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/healthz", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Asset registry (public read; registration requires an API key)
		v1.GET("/assets", handler.ListAssets)
		v1.POST("/assets", middleware.APIKeyAuth(authCfg), handler.CreateAsset)

		// Account directory
		v1.POST("/accounts", middleware.Auth(authCfg), handler.EnsureAccount)
		v1.GET("/accounts/:id", middleware.Auth(authCfg), handler.GetAccount)
		v1.GET("/accounts/:id/balance", middleware.Auth(authCfg), handler.GetBalance)
		v1.POST("/accounts/:id/freeze", middleware.APIKeyAuth(authCfg), handler.FreezeAccount)
		v1.POST("/accounts/:id/unfreeze", middleware.APIKeyAuth(authCfg), handler.UnfreezeAccount)

		// Journal
		v1.POST("/entries", middleware.Auth(authCfg), handler.PostEntry)
		v1.GET("/entries", middleware.Auth(authCfg), handler.ListEntries)
		v1.GET("/entries/:id", middleware.Auth(authCfg), handler.GetEntry)

		// Holds
		v1.POST("/holds", middleware.Auth(authCfg), handler.CreateHold)
		v1.GET("/holds/:id", middleware.Auth(authCfg), handler.GetHold)
		v1.POST("/holds/:id/release", middleware.Auth(authCfg), handler.ReleaseHold)
		v1.POST("/holds/:id/consume", middleware.Auth(authCfg), handler.ConsumeHold)

		// Admin surface (API key only)
		v1.POST("/admin/adjust", middleware.APIKeyAuth(authCfg), handler.Adjust)
		v1.POST("/admin/zero-out", middleware.APIKeyAuth(authCfg), handler.ZeroOutOwner)
	}
}
