package conference

import (
	"context"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/confbuddy/companion-api/internal/store"
)

// Catalog composes podcast listing, search and playback reads for the UI
// layer. Listing supports both page-number and cursor traversal; the
// cursor round-trips exactly so paging forward then backward reproduces
// the same ordering.
type Catalog struct {
	store  *store.Store
	client *remote.Client
}

func NewCatalog(st *store.Store, client *remote.Client) *Catalog {
	return &Catalog{store: st, client: client}
}

// ChannelPage is one page of channels with the total for page controls.
type ChannelPage struct {
	Channels []models.PodcastChannel `json:"channels"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	Limit    int                     `json:"limit"`
}

func (c *Catalog) Channels(ctx context.Context, page, limit int) (*ChannelPage, error) {
	channels, total, err := c.store.ListChannels(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &ChannelPage{Channels: channels, Total: total, Page: page, Limit: limit}, nil
}

// Search filters channels by substring match on title, author and
// description, intersected with an optional tag set.
func (c *Catalog) Search(ctx context.Context, query string, tags []string, page, limit int) (*ChannelPage, error) {
	channels, total, err := c.store.SearchChannels(ctx, query, tags, page, limit)
	if err != nil {
		return nil, err
	}
	return &ChannelPage{Channels: channels, Total: total, Page: page, Limit: limit}, nil
}

func (c *Catalog) Channel(ctx context.Context, id int64) (*models.PodcastChannel, error) {
	return c.store.ChannelByID(ctx, id)
}

// EpisodeWindow is one cursor-delimited window of a channel's episodes.
type EpisodeWindow struct {
	Episodes []models.PodcastEpisode `json:"episodes"`
	Cursor   string                  `json:"cursor"`
}

// EpisodesForward returns episodes strictly after the cursor in
// newest-first order; an empty cursor starts from the top.
func (c *Catalog) EpisodesForward(ctx context.Context, channelID int64, cursor string, limit int) (*EpisodeWindow, error) {
	episodes, next, err := c.store.EpisodesForward(ctx, channelID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &EpisodeWindow{Episodes: episodes, Cursor: next}, nil
}

// EpisodesBackward returns the window ending at the cursor, inclusive.
func (c *Catalog) EpisodesBackward(ctx context.Context, channelID int64, cursor string, limit int) (*EpisodeWindow, error) {
	episodes, prev, err := c.store.EpisodesBackward(ctx, channelID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &EpisodeWindow{Episodes: episodes, Cursor: prev}, nil
}

// EpisodePage is the offset-based variant for simple list views.
func (c *Catalog) EpisodePage(ctx context.Context, channelID int64, page, limit int) ([]models.PodcastEpisode, int64, error) {
	return c.store.EpisodePage(ctx, channelID, page, limit)
}

// Position returns the saved playback position for an episode, zero when
// none was saved.
func (c *Catalog) Position(ctx context.Context, episodeID string) (int64, error) {
	return c.store.Position(ctx, episodeID)
}

func (c *Catalog) SavePosition(ctx context.Context, episodeID string, positionMS int64) error {
	return c.store.SetPosition(ctx, episodeID, positionMS)
}

func (c *Catalog) PlaybackState(ctx context.Context) (*models.PlaybackState, error) {
	return c.store.PlaybackState(ctx)
}

func (c *Catalog) SavePlaybackState(ctx context.Context, state *models.PlaybackState) error {
	return c.store.SavePlaybackState(ctx, state)
}

// RequestPodcast forwards a feed request to the backend operators.
func (c *Catalog) RequestPodcast(ctx context.Context, title, author, rssLink string) (bool, error) {
	return c.client.RequestPodcast(ctx, title, author, rssLink)
}
