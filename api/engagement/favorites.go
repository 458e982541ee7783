package engagement

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// FavoritePayload is the wire shape for a favorite flag change.
type FavoritePayload struct {
	SessionID  string `json:"sessionId" binding:"required"`
	IsFavorite bool   `json:"isFavorite"`
}

// GetFavorites returns the calling installation's favorites.
func GetFavorites(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID, ok := requireRegistered(c, deps, http.StatusUnauthorized)
		if !ok {
			return
		}

		favorites, err := deps.Store.FavoritesForInstallation(c.Request.Context(), installationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favorites"})
			return
		}

		out := make([]FavoritePayload, 0, len(favorites))
		for _, f := range favorites {
			out = append(out, FavoritePayload{SessionID: f.SessionID, IsFavorite: f.IsFavorite})
		}
		c.JSON(http.StatusOK, out)
	}
}

// PostFavorite flips the favorite flag for one session.
func PostFavorite(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID, ok := requireRegistered(c, deps, http.StatusUnauthorized)
		if !ok {
			return
		}

		var payload FavoritePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid favorite payload"})
			return
		}

		if err := deps.Store.ApplyFavorite(c.Request.Context(), installationID, payload.SessionID, payload.IsFavorite, deps.Clock.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save favorite"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
