package podcasts

import (
	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes registers catalog reads and imports.
func RegisterPublicRoutes(parent *gin.RouterGroup, deps *types.Dependencies) {
	group := parent.Group("/podcast")
	group.GET("/all", GetAll(deps))
	group.POST("/import", PostImport(deps))
}

// RegisterAuthedRoutes registers routes that need a bearer identity.
func RegisterAuthedRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("/podcast/sendRequest", PostRequest(deps))
	group.GET("/sync/podcasts", SyncSince(deps))
}
