package identity

import (
	"net/http"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// SignRequest carries the opaque installation id chosen by the device.
type SignRequest struct {
	InstallationID string `json:"installationId" binding:"required"`
}

// PostSign registers an anonymous installation identity. A repeat
// registration is not an error; it answers 409 so the client knows the
// identity was already on file.
func PostSign(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sign request"})
			return
		}

		created, err := deps.Store.RegisterInstallation(c.Request.Context(), req.InstallationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register installation"})
			return
		}
		if !created {
			c.JSON(http.StatusConflict, gin.H{"status": "already registered"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "registered"})
	}
}
