package store

import (
	"context"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
)

// Delta queries back the backend's "changed since" endpoints. Each
// returns rows whose last write happened strictly after the given
// epoch-millisecond timestamp.

func (s *Store) SessionsSince(ctx context.Context, since int64) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("starts_at ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("listing sessions since %d: %w", since, err)
	}
	return sessions, nil
}

func (s *Store) SpeakersSince(ctx context.Context, since int64) ([]models.Speaker, error) {
	var speakers []models.Speaker
	if err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Find(&speakers).Error; err != nil {
		return nil, fmt.Errorf("listing speakers since %d: %w", since, err)
	}
	return speakers, nil
}

func (s *Store) RoomsSince(ctx context.Context, since int64) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("listing rooms since %d: %w", since, err)
	}
	return rooms, nil
}

func (s *Store) CategoriesSince(ctx context.Context, since int64) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("listing categories since %d: %w", since, err)
	}
	return categories, nil
}

// CatalogSince returns channels whose channel row or any episode changed
// after the timestamp, with their full current episode lists.
func (s *Store) CatalogSince(ctx context.Context, since int64) ([]ChannelWithEpisodes, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&models.PodcastChannel{}).
		Select("id").
		Where("updated_at > ? OR id IN (?)", since,
			s.db.Model(&models.PodcastEpisode{}).Select("DISTINCT channel_id").Where("updated_at > ?", since)).
		Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("listing changed channels since %d: %w", since, err)
	}

	out := make([]ChannelWithEpisodes, 0, len(ids))
	for _, id := range ids {
		channel, err := s.ChannelByID(ctx, id)
		if err != nil {
			return nil, err
		}
		tags, err := s.channelTags(ctx, id)
		if err != nil {
			return nil, err
		}
		var episodes []models.PodcastEpisode
		if err := s.db.WithContext(ctx).
			Where("channel_id = ?", id).
			Order("pub_date DESC, id DESC").
			Find(&episodes).Error; err != nil {
			return nil, fmt.Errorf("listing changed episodes: %w", err)
		}
		withCats := make([]EpisodeWithCategories, 0, len(episodes))
		for _, ep := range episodes {
			epTags, err := s.episodeTags(ctx, ep.ID)
			if err != nil {
				return nil, err
			}
			withCats = append(withCats, EpisodeWithCategories{Episode: ep, Categories: epTags})
		}
		out = append(out, ChannelWithEpisodes{Channel: *channel, Categories: tags, Episodes: withCats})
	}
	return out, nil
}
