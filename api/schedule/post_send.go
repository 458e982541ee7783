package schedule

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SendResponse answers every /send/* upload. Business-rule rejections
// come back as success=false with a message rather than an error status,
// so the client can mark the row rejected instead of retrying.
type SendResponse struct {
	Success    bool   `json:"success"`
	AssignedID string `json:"assignedId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// PostSession accepts a session authored or edited on a device. A
// placeholder id gets a canonical server-assigned one, returned so the
// client can remap. Titles must be unique across sessions.
func PostSession(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var session models.Session
		if err := c.ShouldBindJSON(&session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session payload"})
			return
		}
		if strings.TrimSpace(session.Title) == "" {
			c.JSON(http.StatusOK, SendResponse{Success: false, Message: "title is required"})
			return
		}

		existing, err := deps.Store.Sessions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
			return
		}
		for _, other := range existing {
			if other.ID != session.ID && strings.EqualFold(other.Title, session.Title) {
				c.JSON(http.StatusOK, SendResponse{Success: false, Message: "a session with this title already exists"})
				return
			}
		}

		var assigned string
		if store.IsLocalSessionID(session.ID) || session.ID == "" {
			assigned = uuid.NewString()
			session.ID = assigned
		}
		session.SyncState = models.SyncStateSynced
		now := deps.Clock.Now()
		session.LastSyncedAt = &now

		if err := deps.Store.UpsertSession(c.Request.Context(), &session); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}
		c.JSON(http.StatusOK, SendResponse{Success: true, AssignedID: assigned})
	}
}

// PostRoom accepts a room. Non-positive ids are placeholders and get the
// next canonical id. Room names must be unique.
func PostRoom(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var room models.Room
		if err := c.ShouldBindJSON(&room); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room payload"})
			return
		}
		if strings.TrimSpace(room.Name) == "" {
			c.JSON(http.StatusOK, SendResponse{Success: false, Message: "name is required"})
			return
		}

		rooms, err := deps.Store.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rooms"})
			return
		}
		var maxID int64
		for _, other := range rooms {
			if other.ID > maxID {
				maxID = other.ID
			}
			if other.ID != room.ID && strings.EqualFold(other.Name, room.Name) {
				c.JSON(http.StatusOK, SendResponse{Success: false, Message: "a room with this name already exists"})
				return
			}
		}

		var assigned string
		if room.ID <= 0 {
			room.ID = maxID + 1
			assigned = strconv.FormatInt(room.ID, 10)
		}
		room.SyncState = models.SyncStateSynced
		now := deps.Clock.Now()
		room.LastSyncedAt = &now

		if err := deps.Store.UpsertRoom(c.Request.Context(), &room); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save room"})
			return
		}
		c.JSON(http.StatusOK, SendResponse{Success: true, AssignedID: assigned})
	}
}

// PostSessionSpeaker accepts one session/speaker link. Both endpoints
// must already exist server-side.
func PostSessionSpeaker(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var link models.SessionSpeaker
		if err := c.ShouldBindJSON(&link); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link payload"})
			return
		}

		now := deps.Clock.Now()
		if err := deps.Store.LinkSessionSpeaker(c.Request.Context(), link.SessionID, link.SpeakerID); err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusOK, SendResponse{Success: false, Message: err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save link"})
			return
		}
		if err := deps.Store.MarkSessionSpeakerSynced(c.Request.Context(), link.SessionID, link.SpeakerID, now); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save link"})
			return
		}
		c.JSON(http.StatusOK, SendResponse{Success: true})
	}
}

// PostSessionCategory accepts one session/category link.
func PostSessionCategory(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var link models.SessionCategory
		if err := c.ShouldBindJSON(&link); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link payload"})
			return
		}

		now := deps.Clock.Now()
		if err := deps.Store.LinkSessionCategory(c.Request.Context(), link.SessionID, link.CategoryID); err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusOK, SendResponse{Success: false, Message: err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save link"})
			return
		}
		if err := deps.Store.MarkSessionCategorySynced(c.Request.Context(), link.SessionID, link.CategoryID, now); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save link"})
			return
		}
		c.JSON(http.StatusOK, SendResponse{Success: true})
	}
}
