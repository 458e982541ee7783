package models

// PodcastChannel represents a podcast feed in the catalog.
type PodcastChannel struct {
	ID            int64  `json:"id" gorm:"primaryKey"`
	Title         string `json:"title" gorm:"not null"`
	Link          string `json:"link"`
	Description   string `json:"description"`
	Copyright     string `json:"copyright"`
	Language      string `json:"language"`
	Author        string `json:"author"`
	OwnerEmail    string `json:"ownerEmail"`
	OwnerName     string `json:"ownerName"`
	ImageURL      string `json:"imageUrl"`
	LastBuildDate int64  `json:"lastBuildDate"`
	UpdatedAt     int64  `json:"-" gorm:"autoUpdateTime:milli"`
}

// PodcastCategory rows are created on demand and reused by name, so the
// same tag never exists twice.
type PodcastCategory struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

type ChannelCategory struct {
	ChannelID  int64 `json:"channelId" gorm:"primaryKey"`
	CategoryID int64 `json:"categoryId" gorm:"primaryKey"`
}

type PodcastEpisode struct {
	ID          string `json:"id" gorm:"primaryKey"`
	ChannelID   int64  `json:"channelId" gorm:"index;not null"`
	GUID        string `json:"guid" gorm:"uniqueIndex;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PubDate     int64  `json:"pubDate" gorm:"index"`
	Duration    int64  `json:"duration"`
	Explicit    bool   `json:"explicit"`
	ImageURL    string `json:"imageUrl"`
	MediaURL    string `json:"mediaUrl"`
	MediaType   string `json:"mediaType"`
	MediaLength int64  `json:"mediaLength"`
	UpdatedAt   int64  `json:"-" gorm:"autoUpdateTime:milli"`
}

type EpisodeCategory struct {
	EpisodeID  string `json:"episodeId" gorm:"primaryKey"`
	CategoryID int64  `json:"categoryId" gorm:"primaryKey"`
}

// EpisodeProgress tracks per-episode resume positions, independent of the
// single last-playback-state row.
type EpisodeProgress struct {
	EpisodeID   string `json:"episodeId" gorm:"primaryKey"`
	PositionMS  int64  `json:"position_ms"`
	LastUpdated int64  `json:"last_updated"`
}

// PlaybackState is a process-wide singleton (row id 1) persisted every few
// seconds and on pause so playback survives restarts.
type PlaybackState struct {
	ID           uint    `json:"-" gorm:"primaryKey"`
	EpisodeID    *string `json:"episodeId"`
	ChannelID    *int64  `json:"channelId"`
	Position     int64   `json:"position"`
	URL          string  `json:"url"`
	Speed        float64 `json:"speed"`
	BoostEnabled bool    `json:"boostEnabled"`
}
