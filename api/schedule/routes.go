package schedule

import (
	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes registers the unauthenticated schedule reads.
func RegisterPublicRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/conference", GetConference(deps))

	get := group.Group("/get")
	get.GET("/sessions", GetSessions(deps))
	get.GET("/speakers", GetSpeakers(deps))
	get.GET("/rooms", GetRooms(deps))
	get.GET("/categories", GetCategories(deps))
	get.GET("/session-speakers", GetSessionSpeakers(deps))
	get.GET("/session-categories", GetSessionCategories(deps))
}

// RegisterAuthedRoutes registers uploads and deltas on a group that
// already carries the bearer identity middleware.
func RegisterAuthedRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	send := group.Group("/send")
	send.POST("/sessions", PostSession(deps))
	send.POST("/rooms", PostRoom(deps))
	send.POST("/session-speaker", PostSessionSpeaker(deps))
	send.POST("/session-categories", PostSessionCategory(deps))

	sync := group.Group("/sync")
	sync.GET("/sessions", SyncSessions(deps))
	sync.GET("/speakers", SyncSpeakers(deps))
	sync.GET("/rooms", SyncRooms(deps))
	sync.GET("/categories", SyncCategories(deps))
}
