package engagement

import (
	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers vote, favorite and feedback routes. The group
// must already carry the bearer identity middleware.
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/vote", GetVotes(deps))
	group.POST("/vote", PostVote(deps))
	group.GET("/favorite", GetFavorites(deps))
	group.POST("/favorite", PostFavorite(deps))
	group.POST("/feedback", PostFeedback(deps))
}
