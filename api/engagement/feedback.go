package engagement

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// FeedbackPayload is the wire shape for free-text session feedback.
type FeedbackPayload struct {
	SessionID string `json:"sessionId" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

// PostFeedback stores free-text feedback, overwriting any earlier
// submission for the same session. An unregistered identity gets 403.
func PostFeedback(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID, ok := requireRegistered(c, deps, http.StatusForbidden)
		if !ok {
			return
		}

		var payload FeedbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback payload"})
			return
		}

		if err := deps.Store.ApplyFeedback(c.Request.Context(), installationID, payload.SessionID, payload.Value, deps.Clock.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
