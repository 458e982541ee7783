package remote

import "github.com/confbuddy/companion-api/internal/models"

// SyncResponse is the server's answer to a /send mutation. AssignedID is
// present when the server replaced a locally-generated placeholder with a
// canonical identifier.
type SyncResponse struct {
	Success    bool   `json:"success"`
	AssignedID string `json:"assignedId,omitempty"`
	Message    string `json:"message,omitempty"`
}

type VotePayload struct {
	SessionID string `json:"sessionId"`
	Score     *int   `json:"score"`
}

type FavoritePayload struct {
	SessionID  string `json:"sessionId"`
	IsFavorite bool   `json:"isFavorite"`
}

type FeedbackPayload struct {
	SessionID string `json:"sessionId"`
	Value     string `json:"value"`
}

// ConferenceSnapshot is the public full-schedule response.
type ConferenceSnapshot struct {
	Sessions []models.Session `json:"sessions"`
	Speakers []models.Speaker `json:"speakers"`
}

type TimeResponse struct {
	Time int64 `json:"time"`
}

type SignRequest struct {
	InstallationID string `json:"installationId"`
}

type PodcastRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	RSSLink string `json:"rssLink"`
}

type ImportResponse struct {
	Status    string `json:"status"`
	ChannelID int64  `json:"channel_id"`
}
