package servertime

import (
	"net/http"
	"strconv"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/gin-gonic/gin"
)

// Get returns the authoritative server time in epoch milliseconds.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"time": deps.Clock.Now()})
	}
}

// PostOverride freezes or restores the server clock. The literal "null"
// clears the override; anything else must parse as epoch milliseconds.
func PostOverride(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.Param("millis")
		if value == "null" {
			deps.Clock.SetOverride(nil)
			c.JSON(http.StatusOK, gin.H{"status": "override cleared"})
			return
		}

		millis, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Time must be epoch milliseconds or null"})
			return
		}
		deps.Clock.SetOverride(&millis)
		c.JSON(http.StatusOK, gin.H{"status": "override set", "time": millis})
	}
}
