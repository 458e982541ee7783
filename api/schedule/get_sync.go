package schedule

import (
	"net/http"
	"strconv"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// Delta handlers: rows changed strictly after the given timestamp.

func sinceParam(c *gin.Context) (int64, bool) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be epoch milliseconds"})
		return 0, false
	}
	return since, true
}

func SyncSessions(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, ok := sinceParam(c)
		if !ok {
			return
		}
		sessions, err := deps.Store.SessionsSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session deltas"})
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

func SyncSpeakers(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, ok := sinceParam(c)
		if !ok {
			return
		}
		speakers, err := deps.Store.SpeakersSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load speaker deltas"})
			return
		}
		c.JSON(http.StatusOK, speakers)
	}
}

func SyncRooms(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, ok := sinceParam(c)
		if !ok {
			return
		}
		rooms, err := deps.Store.RoomsSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room deltas"})
			return
		}
		c.JSON(http.StatusOK, rooms)
	}
}

func SyncCategories(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, ok := sinceParam(c)
		if !ok {
			return
		}
		categories, err := deps.Store.CategoriesSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load category deltas"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}
