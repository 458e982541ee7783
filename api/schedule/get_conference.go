package schedule

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/internal/models"
	"github.com/gin-gonic/gin"
)

// ConferenceSnapshot is the public full-schedule payload.
type ConferenceSnapshot struct {
	Sessions []models.Session `json:"sessions"`
	Speakers []models.Speaker `json:"speakers"`
}

// GetConference returns the full schedule snapshot. Public, no auth.
func GetConference(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := deps.Store.Sessions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}
		speakers, err := deps.Store.Speakers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load speakers"})
			return
		}
		c.JSON(http.StatusOK, ConferenceSnapshot{Sessions: sessions, Speakers: speakers})
	}
}
