package podcasts

import (
	"bytes"
	"encoding/gob"
	"log"
	"net/http"
	"strconv"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/gin-gonic/gin"
)

// Catalog payloads travel gob-encoded; both ends are Go and the full
// catalog with episode lists is far smaller in gob than JSON.
const catalogContentType = "application/octet-stream"

func writeCatalog(c *gin.Context, channels []store.ChannelWithEpisodes) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(channels); err != nil {
		log.Printf("[ERROR] encoding podcast catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode catalog"})
		return
	}
	c.Data(http.StatusOK, catalogContentType, buf.Bytes())
}

// GetAll streams the full catalog.
func GetAll(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		channels, err := deps.Store.Catalog(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
			return
		}
		writeCatalog(c, channels)
	}
}

// SyncSince streams channels changed after the given timestamp,
// including channels whose episode lists changed.
func SyncSince(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be epoch milliseconds"})
			return
		}
		channels, err := deps.Store.CatalogSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog deltas"})
			return
		}
		writeCatalog(c, channels)
	}
}

// PostImport ingests a full channel with episodes, typically from an
// operator-side feed fetcher.
func PostImport(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload store.ChannelWithEpisodes
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel payload"})
			return
		}

		if err := deps.Store.SyncCatalog(c.Request.Context(), []store.ChannelWithEpisodes{payload}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import channel"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "imported", "channel_id": payload.Channel.ID})
	}
}

// RequestPayload is a listener's ask to add a feed to the catalog.
type RequestPayload struct {
	Title   string `json:"title" binding:"required"`
	Author  string `json:"author"`
	RSSLink string `json:"rssLink" binding:"required"`
}

// PostRequest records a feed request. The catalog itself is curated by
// operators, so this just logs the ask.
func PostRequest(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		installationID := c.GetString(types.InstallationIDKey)
		exists, err := deps.Store.InstallationExists(c.Request.Context(), installationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check identity"})
			return
		}
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unknown installation"})
			return
		}

		var payload RequestPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid podcast request"})
			return
		}
		log.Printf("[INFO] Podcast request from %s: %q by %q (%s)",
			installationID, payload.Title, payload.Author, payload.RSSLink)
		c.JSON(http.StatusOK, gin.H{"status": "requested"})
	}
}
