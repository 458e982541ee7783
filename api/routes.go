package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/confbuddy/companion-api/api/engagement"
	"github.com/confbuddy/companion-api/api/health"
	"github.com/confbuddy/companion-api/api/identity"
	"github.com/confbuddy/companion-api/api/podcasts"
	"github.com/confbuddy/companion-api/api/schedule"
	"github.com/confbuddy/companion-api/api/servertime"
	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/api/version"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil || deps.Store == nil {
		return fmt.Errorf("handler dependencies not configured")
	}
	if deps.Clock == nil {
		deps.Clock = types.NewServerClock()
	}

	// Public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)
	servertime.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// Sign gets its own tight limit; it runs once per installation.
	signGroup := engine.Group("")
	signGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 1, 3))
	identity.RegisterRoutes(signGroup, deps)

	// Public schedule and catalog reads (10 req/s, burst of 20)
	public := engine.Group("")
	public.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20))
	schedule.RegisterPublicRoutes(public, deps)
	podcasts.RegisterPublicRoutes(public, deps)

	// Routes that require a bearer identity
	authed := engine.Group("")
	authed.Use(BearerIdentity())
	engagement.RegisterRoutes(authed, deps)
	schedule.RegisterAuthedRoutes(authed, deps)
	podcasts.RegisterAuthedRoutes(authed, deps)

	// Operator routes behind the shared admin secret
	admin := engine.Group("")
	admin.Use(AdminSecret(deps.AdminSecret))
	admin.POST("/time/:millis", servertime.PostOverride(deps))

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
