package identity

import (
	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers identity routes
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.POST("/sign", PostSign(deps))
}
