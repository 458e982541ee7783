package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

func (s *Store) UpsertSpeaker(ctx context.Context, speaker *models.Speaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Speaker
		err := tx.Where("id = ?", speaker.ID).First(&existing).Error
		if err == nil {
			return tx.Save(speaker).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(speaker).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting speaker %s: %w", speaker.ID, err)
	}
	s.hub.Publish(KindSpeakers)
	return nil
}

func (s *Store) Speakers(ctx context.Context) ([]models.Speaker, error) {
	var speakers []models.Speaker
	if err := s.db.WithContext(ctx).
		Order("last_name ASC, first_name ASC").
		Find(&speakers).Error; err != nil {
		return nil, fmt.Errorf("listing speakers: %w", err)
	}
	return speakers, nil
}

func (s *Store) SpeakerByID(ctx context.Context, id string) (*models.Speaker, error) {
	var speaker models.Speaker
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&speaker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("speaker", id)
		}
		return nil, fmt.Errorf("getting speaker: %w", err)
	}
	return &speaker, nil
}

func (s *Store) MarkSpeakerSynced(ctx context.Context, id string, syncedAt int64) error {
	result := s.db.WithContext(ctx).Model(&models.Speaker{}).Where("id = ?", id).Updates(map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("marking speaker synced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("speaker", id)
	}
	s.hub.Publish(KindSpeakers)
	return nil
}
