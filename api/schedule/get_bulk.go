package schedule

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// Bulk snapshot handlers. Each returns every row of one entity kind.

func GetSessions(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := deps.Store.Sessions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}
		c.JSON(http.StatusOK, sessions)
	}
}

func GetSpeakers(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		speakers, err := deps.Store.Speakers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load speakers"})
			return
		}
		c.JSON(http.StatusOK, speakers)
	}
}

func GetRooms(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, err := deps.Store.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rooms"})
			return
		}
		c.JSON(http.StatusOK, rooms)
	}
}

func GetCategories(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := deps.Store.Categories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load categories"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func GetSessionSpeakers(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := deps.Store.SessionSpeakers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session speakers"})
			return
		}
		c.JSON(http.StatusOK, links)
	}
}

func GetSessionCategories(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := deps.Store.SessionCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session categories"})
			return
		}
		c.JSON(http.StatusOK, links)
	}
}
