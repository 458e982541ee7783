package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

// Position returns the saved resume position for an episode, or zero
// when none has been recorded.
func (s *Store) Position(ctx context.Context, episodeID string) (int64, error) {
	var progress models.EpisodeProgress
	err := s.db.WithContext(ctx).Where("episode_id = ?", episodeID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting position: %w", err)
	}
	return progress.PositionMS, nil
}

// SetPosition records the resume position for an episode.
func (s *Store) SetPosition(ctx context.Context, episodeID string, positionMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := &models.EpisodeProgress{
		EpisodeID:   episodeID,
		PositionMS:  positionMS,
		LastUpdated: nowMillis(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EpisodeProgress
		err := tx.Where("episode_id = ?", episodeID).First(&existing).Error
		if err == nil {
			return tx.Save(progress).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(progress).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("setting position for episode %s: %w", episodeID, err)
	}
	s.hub.Publish(KindPlayback)
	return nil
}

const playbackStateID = 1

// PlaybackState returns the process-wide playback singleton, defaulted
// when nothing has been persisted yet.
func (s *Store) PlaybackState(ctx context.Context) (*models.PlaybackState, error) {
	var state models.PlaybackState
	err := s.db.WithContext(ctx).Where("id = ?", playbackStateID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PlaybackState{ID: playbackStateID, Speed: 1.0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting playback state: %w", err)
	}
	return &state, nil
}

// SavePlaybackState persists the singleton, called every few seconds
// while playing and on pause so playback resumes across restarts.
func (s *Store) SavePlaybackState(ctx context.Context, state *models.PlaybackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.ID = playbackStateID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PlaybackState
		err := tx.Where("id = ?", playbackStateID).First(&existing).Error
		if err == nil {
			return tx.Save(state).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(state).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("saving playback state: %w", err)
	}
	s.hub.Publish(KindPlayback)
	return nil
}
