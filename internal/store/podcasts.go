package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

// ChannelWithEpisodes bundles a channel, its tag names and its episodes
// for bulk catalog sync.
type ChannelWithEpisodes struct {
	Channel    models.PodcastChannel
	Categories []string
	Episodes   []EpisodeWithCategories
}

type EpisodeWithCategories struct {
	Episode    models.PodcastEpisode
	Categories []string
}

// UpsertChannel writes a channel and replaces its tag links. Category
// rows are created on demand and reused by name.
func (s *Store) UpsertChannel(ctx context.Context, channel *models.PodcastChannel, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertChannelTx(tx, channel, categories)
	})
	if err != nil {
		return fmt.Errorf("upserting channel %d: %w", channel.ID, err)
	}
	s.channelTagC.Delete(strconv.FormatInt(channel.ID, 10))
	s.hub.Publish(KindPodcasts)
	return nil
}

// UpsertEpisode writes an episode keyed by GUID and replaces its tag
// links.
func (s *Store) UpsertEpisode(ctx context.Context, episode *models.PodcastEpisode, categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertEpisodeTx(tx, episode, categories)
	})
	if err != nil {
		return fmt.Errorf("upserting episode %s: %w", episode.GUID, err)
	}
	s.episodeTagC.Delete(episode.ID)
	s.hub.Publish(KindPodcasts)
	return nil
}

// SyncCatalog applies a bulk catalog payload in one transaction. The
// store-wide write mutex keeps the batch from interleaving with per-row
// upserts.
func (s *Store) SyncCatalog(ctx context.Context, channels []ChannelWithEpisodes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range channels {
			cwe := &channels[i]
			if err := upsertChannelTx(tx, &cwe.Channel, cwe.Categories); err != nil {
				return err
			}
			for j := range cwe.Episodes {
				ep := &cwe.Episodes[j]
				ep.Episode.ChannelID = cwe.Channel.ID
				if err := upsertEpisodeTx(tx, &ep.Episode, ep.Categories); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("syncing podcast catalog: %w", err)
	}
	s.channelTagC.Clear()
	s.episodeTagC.Clear()
	s.hub.Publish(KindPodcasts)
	return nil
}

func upsertChannelTx(tx *gorm.DB, channel *models.PodcastChannel, categories []string) error {
	var existing models.PodcastChannel
	err := tx.Where("id = ?", channel.ID).First(&existing).Error
	switch {
	case err == nil:
		if err := tx.Save(channel).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(channel).Error; err != nil {
			return err
		}
	default:
		return err
	}

	ids, err := ensureCategories(tx, categories)
	if err != nil {
		return err
	}
	if err := tx.Where("channel_id = ?", channel.ID).Delete(&models.ChannelCategory{}).Error; err != nil {
		return err
	}
	for _, cid := range ids {
		if err := tx.Create(&models.ChannelCategory{ChannelID: channel.ID, CategoryID: cid}).Error; err != nil {
			return err
		}
	}
	return nil
}

func upsertEpisodeTx(tx *gorm.DB, episode *models.PodcastEpisode, categories []string) error {
	var existing models.PodcastEpisode
	err := tx.Where("guid = ?", episode.GUID).First(&existing).Error
	switch {
	case err == nil:
		// The GUID is the natural key; keep the first-seen row ID.
		episode.ID = existing.ID
		if err := tx.Save(episode).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(episode).Error; err != nil {
			return err
		}
	default:
		return err
	}

	ids, err := ensureCategories(tx, categories)
	if err != nil {
		return err
	}
	if err := tx.Where("episode_id = ?", episode.ID).Delete(&models.EpisodeCategory{}).Error; err != nil {
		return err
	}
	for _, cid := range ids {
		if err := tx.Create(&models.EpisodeCategory{EpisodeID: episode.ID, CategoryID: cid}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureCategories resolves tag names to IDs, creating missing rows.
func ensureCategories(tx *gorm.DB, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var cat models.PodcastCategory
		if err := tx.Where("name = ?", name).
			FirstOrCreate(&cat, models.PodcastCategory{Name: name}).Error; err != nil {
			return nil, err
		}
		ids = append(ids, cat.ID)
	}
	return ids, nil
}

func (s *Store) ChannelByID(ctx context.Context, id int64) (*models.PodcastChannel, error) {
	var channel models.PodcastChannel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("channel", id)
		}
		return nil, fmt.Errorf("getting channel: %w", err)
	}
	return &channel, nil
}

// ListChannels returns one offset-based page of channels plus the total
// count.
func (s *Store) ListChannels(ctx context.Context, page, limit int) ([]models.PodcastChannel, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var channels []models.PodcastChannel
	var total int64

	query := s.db.WithContext(ctx).Model(&models.PodcastChannel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting channels: %w", err)
	}
	if err := query.
		Order("title ASC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&channels).Error; err != nil {
		return nil, 0, fmt.Errorf("listing channels: %w", err)
	}
	return channels, total, nil
}

// SearchChannels filters by substring match on title/author/description
// and, when tags are given, by channels carrying every requested tag.
func (s *Store) SearchChannels(ctx context.Context, query string, tags []string, page, limit int) ([]models.PodcastChannel, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	q := s.db.WithContext(ctx).Model(&models.PodcastChannel{})
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("title LIKE ? OR author LIKE ? OR description LIKE ?", like, like, like)
	}
	if len(tags) > 0 {
		sub := s.db.Table("channel_categories").
			Select("channel_categories.channel_id").
			Joins("JOIN podcast_categories ON podcast_categories.id = channel_categories.category_id").
			Where("podcast_categories.name IN ?", tags).
			Group("channel_categories.channel_id").
			Having("COUNT(DISTINCT podcast_categories.name) = ?", len(tags))
		q = q.Where("id IN (?)", sub)
	}

	var channels []models.PodcastChannel
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting channel search: %w", err)
	}
	if err := q.
		Order("title ASC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&channels).Error; err != nil {
		return nil, 0, fmt.Errorf("searching channels: %w", err)
	}
	return channels, total, nil
}

// episodeCursor is the opaque pagination token: the last-seen sort key,
// base64 of "<pubDate>|<id>". It must round-trip exactly so forward and
// backward traversal stay symmetric.
type episodeCursor struct {
	PubDate int64
	ID      string
}

func encodeEpisodeCursor(ep models.PodcastEpisode) string {
	raw := fmt.Sprintf("%d|%s", ep.PubDate, ep.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeEpisodeCursor(cursor string) (episodeCursor, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return episodeCursor{}, fmt.Errorf("decoding cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return episodeCursor{}, fmt.Errorf("malformed cursor")
	}
	pubDate, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return episodeCursor{}, fmt.Errorf("malformed cursor: %w", err)
	}
	return episodeCursor{PubDate: pubDate, ID: parts[1]}, nil
}

// EpisodesForward returns up to limit episodes newest-first, strictly
// after the cursor position (or from the top when cursor is empty), plus
// the cursor to continue from.
func (s *Store) EpisodesForward(ctx context.Context, channelID int64, cursor string, limit int) ([]models.PodcastEpisode, string, error) {
	if limit <= 0 {
		limit = 20
	}

	q := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("pub_date DESC, id DESC").
		Limit(limit)
	if cursor != "" {
		c, err := decodeEpisodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		q = q.Where("pub_date < ? OR (pub_date = ? AND id < ?)", c.PubDate, c.PubDate, c.ID)
	}

	var episodes []models.PodcastEpisode
	if err := q.Find(&episodes).Error; err != nil {
		return nil, "", fmt.Errorf("paging episodes forward: %w", err)
	}

	next := ""
	if len(episodes) > 0 {
		next = encodeEpisodeCursor(episodes[len(episodes)-1])
	}
	return episodes, next, nil
}

// EpisodesBackward returns up to limit episodes ending at the cursor
// position inclusive, in the same newest-first order EpisodesForward
// uses, plus the cursor of the first returned row. Paging backward from
// a forward end-cursor reproduces the forward page exactly.
func (s *Store) EpisodesBackward(ctx context.Context, channelID int64, cursor string, limit int) ([]models.PodcastEpisode, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if cursor == "" {
		return nil, "", fmt.Errorf("backward paging requires a cursor")
	}
	c, err := decodeEpisodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var episodes []models.PodcastEpisode
	if err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Where("pub_date > ? OR (pub_date = ? AND id >= ?)", c.PubDate, c.PubDate, c.ID).
		Order("pub_date ASC, id ASC").
		Limit(limit).
		Find(&episodes).Error; err != nil {
		return nil, "", fmt.Errorf("paging episodes backward: %w", err)
	}

	// Flip to the canonical newest-first order.
	for i, j := 0, len(episodes)-1; i < j; i, j = i+1, j-1 {
		episodes[i], episodes[j] = episodes[j], episodes[i]
	}

	prev := ""
	if len(episodes) > 0 {
		prev = encodeEpisodeCursor(episodes[0])
	}
	return episodes, prev, nil
}

// EpisodePage is the offset-based variant for simple list views.
func (s *Store) EpisodePage(ctx context.Context, channelID int64, page, limit int) ([]models.PodcastEpisode, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var episodes []models.PodcastEpisode
	var total int64

	query := s.db.WithContext(ctx).Model(&models.PodcastEpisode{}).Where("channel_id = ?", channelID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting episodes: %w", err)
	}
	if err := query.
		Order("pub_date DESC, id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&episodes).Error; err != nil {
		return nil, 0, fmt.Errorf("listing episodes: %w", err)
	}
	return episodes, total, nil
}

// Catalog returns the full catalog with tags and episodes, used by the
// backend's binary export.
func (s *Store) Catalog(ctx context.Context) ([]ChannelWithEpisodes, error) {
	var channels []models.PodcastChannel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("listing catalog channels: %w", err)
	}

	out := make([]ChannelWithEpisodes, 0, len(channels))
	for _, ch := range channels {
		tags, err := s.channelTags(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		var episodes []models.PodcastEpisode
		if err := s.db.WithContext(ctx).
			Where("channel_id = ?", ch.ID).
			Order("pub_date DESC, id DESC").
			Find(&episodes).Error; err != nil {
			return nil, fmt.Errorf("listing catalog episodes: %w", err)
		}
		withCats := make([]EpisodeWithCategories, 0, len(episodes))
		for _, ep := range episodes {
			epTags, err := s.episodeTags(ctx, ep.ID)
			if err != nil {
				return nil, err
			}
			withCats = append(withCats, EpisodeWithCategories{Episode: ep, Categories: epTags})
		}
		out = append(out, ChannelWithEpisodes{Channel: ch, Categories: tags, Episodes: withCats})
	}
	return out, nil
}

func (s *Store) channelTags(ctx context.Context, channelID int64) ([]string, error) {
	key := strconv.FormatInt(channelID, 10)
	if names, ok := s.channelTagC.Get(key); ok {
		return names, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).Table("channel_categories").
		Select("podcast_categories.name").
		Joins("JOIN podcast_categories ON podcast_categories.id = channel_categories.category_id").
		Where("channel_categories.channel_id = ?", channelID).
		Order("podcast_categories.name ASC").
		Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("listing channel tags: %w", err)
	}
	s.channelTagC.Set(key, names)
	return names, nil
}

func (s *Store) episodeTags(ctx context.Context, episodeID string) ([]string, error) {
	if names, ok := s.episodeTagC.Get(episodeID); ok {
		return names, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).Table("episode_categories").
		Select("podcast_categories.name").
		Joins("JOIN podcast_categories ON podcast_categories.id = episode_categories.category_id").
		Where("episode_categories.episode_id = ?", episodeID).
		Order("podcast_categories.name ASC").
		Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("listing episode tags: %w", err)
	}
	s.episodeTagC.Set(episodeID, names)
	return names, nil
}

// ChannelTags returns the tag names linked to a channel.
func (s *Store) ChannelTags(ctx context.Context, channelID int64) ([]string, error) {
	return s.channelTags(ctx, channelID)
}

// EpisodeTags returns the tag names linked to an episode.
func (s *Store) EpisodeTags(ctx context.Context, episodeID string) ([]string, error) {
	return s.episodeTags(ctx, episodeID)
}
