package engagement

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/gin-gonic/gin"
)

// StatusComeBackLater answers a vote placed before the session's voting
// window opens. It tells the client to retry later without treating the
// vote as rejected.
const StatusComeBackLater = 477

// VotePayload is the wire shape for a single vote. A null score retracts.
type VotePayload struct {
	SessionID string `json:"sessionId" binding:"required"`
	Score     *int   `json:"score"`
}

// GetVotes returns the calling installation's votes.
func GetVotes(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID, ok := requireRegistered(c, deps, http.StatusUnauthorized)
		if !ok {
			return
		}

		votes, err := deps.Store.VotesForInstallation(c.Request.Context(), installationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load votes"})
			return
		}

		out := make([]VotePayload, 0, len(votes))
		for _, v := range votes {
			score := v.Score
			out = append(out, VotePayload{SessionID: v.SessionID, Score: &score})
		}
		c.JSON(http.StatusOK, out)
	}
}

// PostVote records or retracts a vote. Votes placed before the session
// starts get 477: the window opens at the session's start time measured
// by the server clock.
func PostVote(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID, ok := requireRegistered(c, deps, http.StatusUnauthorized)
		if !ok {
			return
		}

		var payload VotePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vote payload"})
			return
		}

		session, err := deps.Store.SessionByID(c.Request.Context(), payload.SessionID)
		if err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return
		}
		if deps.Clock.Now() < session.StartsAt {
			c.JSON(StatusComeBackLater, gin.H{"error": "Voting has not opened for this session"})
			return
		}

		if err := deps.Store.ApplyVote(c.Request.Context(), installationID, payload.SessionID, payload.Score, deps.Clock.Now()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// requireRegistered resolves the caller's identity and answers with the
// given status when it is not on file.
func requireRegistered(c *gin.Context, deps *types.Dependencies, unknownStatus int) (string, bool) {
	installationID := c.GetString(types.InstallationIDKey)
	exists, err := deps.Store.InstallationExists(c.Request.Context(), installationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check identity"})
		return "", false
	}
	if !exists {
		c.JSON(unknownStatus, gin.H{"error": "Unknown installation"})
		return "", false
	}
	return installationID, true
}
