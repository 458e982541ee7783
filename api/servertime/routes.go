package servertime

import (
	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the public time route; the override route is
// registered by the caller under the admin gate.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	engine.GET("/time", Get(deps))
}
