package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

// LinkSessionSpeaker records a session/speaker relationship as pending
// local work. Both endpoints must exist.
func (s *Store) LinkSessionSpeaker(ctx context.Context, sessionID, speakerID string) error {
	link := &models.SessionSpeaker{
		SessionID: sessionID,
		SpeakerID: speakerID,
		SyncState: models.SyncStatePending,
	}
	return s.upsertSessionSpeaker(ctx, link, true)
}

// UpsertSessionSpeaker applies a server-delivered relationship row.
func (s *Store) UpsertSessionSpeaker(ctx context.Context, link *models.SessionSpeaker) error {
	return s.upsertSessionSpeaker(ctx, link, false)
}

func (s *Store) upsertSessionSpeaker(ctx context.Context, link *models.SessionSpeaker, checkRefs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if checkRefs {
			if err := requireRow(tx, &models.Session{}, "id = ?", link.SessionID, "session"); err != nil {
				return err
			}
			if err := requireRow(tx, &models.Speaker{}, "id = ?", link.SpeakerID, "speaker"); err != nil {
				return err
			}
		}
		var existing models.SessionSpeaker
		err := tx.Where("session_id = ? AND speaker_id = ?", link.SessionID, link.SpeakerID).
			First(&existing).Error
		if err == nil {
			return tx.Save(link).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(link).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting session speaker %s/%s: %w", link.SessionID, link.SpeakerID, err)
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}

// LinkSessionCategory records a session/category relationship as pending
// local work. Both endpoints must exist.
func (s *Store) LinkSessionCategory(ctx context.Context, sessionID string, categoryID int64) error {
	link := &models.SessionCategory{
		SessionID:  sessionID,
		CategoryID: categoryID,
		SyncState:  models.SyncStatePending,
	}
	return s.upsertSessionCategory(ctx, link, true)
}

// UpsertSessionCategory applies a server-delivered relationship row.
func (s *Store) UpsertSessionCategory(ctx context.Context, link *models.SessionCategory) error {
	return s.upsertSessionCategory(ctx, link, false)
}

func (s *Store) upsertSessionCategory(ctx context.Context, link *models.SessionCategory, checkRefs bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if checkRefs {
			if err := requireRow(tx, &models.Session{}, "id = ?", link.SessionID, "session"); err != nil {
				return err
			}
			if err := requireRow(tx, &models.Category{}, "id = ?", link.CategoryID, "category"); err != nil {
				return err
			}
		}
		var existing models.SessionCategory
		err := tx.Where("session_id = ? AND category_id = ?", link.SessionID, link.CategoryID).
			First(&existing).Error
		if err == nil {
			return tx.Save(link).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(link).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting session category %s/%d: %w", link.SessionID, link.CategoryID, err)
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}

func requireRow(tx *gorm.DB, model any, query string, arg any, resource string) error {
	var count int64
	if err := tx.Model(model).Where(query, arg).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewNotFoundError(resource, arg)
	}
	return nil
}

func (s *Store) SessionSpeakers(ctx context.Context) ([]models.SessionSpeaker, error) {
	var links []models.SessionSpeaker
	if err := s.db.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("listing session speakers: %w", err)
	}
	return links, nil
}

func (s *Store) SessionCategories(ctx context.Context) ([]models.SessionCategory, error) {
	var links []models.SessionCategory
	if err := s.db.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("listing session categories: %w", err)
	}
	return links, nil
}

func (s *Store) PendingSessionSpeakers(ctx context.Context) ([]models.SessionSpeaker, error) {
	var links []models.SessionSpeaker
	if err := s.db.WithContext(ctx).
		Where("sync_state IN ?", []models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("listing pending session speakers: %w", err)
	}
	return links, nil
}

func (s *Store) PendingSessionCategories(ctx context.Context) ([]models.SessionCategory, error) {
	var links []models.SessionCategory
	if err := s.db.WithContext(ctx).
		Where("sync_state IN ?", []models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("listing pending session categories: %w", err)
	}
	return links, nil
}

func (s *Store) MarkSessionSpeakerSynced(ctx context.Context, sessionID, speakerID string, syncedAt int64) error {
	result := s.db.WithContext(ctx).Model(&models.SessionSpeaker{}).
		Where("session_id = ? AND speaker_id = ?", sessionID, speakerID).
		Updates(map[string]any{
			"sync_state":     models.SyncStateSynced,
			"last_synced_at": syncedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("marking session speaker synced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("session speaker", sessionID+"/"+speakerID)
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}

func (s *Store) SetSessionSpeakerState(ctx context.Context, sessionID, speakerID string, state models.SyncState) error {
	result := s.db.WithContext(ctx).Model(&models.SessionSpeaker{}).
		Where("session_id = ? AND speaker_id = ?", sessionID, speakerID).
		Update("sync_state", state)
	if result.Error != nil {
		return fmt.Errorf("updating session speaker state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("session speaker", sessionID+"/"+speakerID)
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}

func (s *Store) SetSessionCategoryState(ctx context.Context, sessionID string, categoryID int64, state models.SyncState) error {
	result := s.db.WithContext(ctx).Model(&models.SessionCategory{}).
		Where("session_id = ? AND category_id = ?", sessionID, categoryID).
		Update("sync_state", state)
	if result.Error != nil {
		return fmt.Errorf("updating session category state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("session category", fmt.Sprintf("%s/%d", sessionID, categoryID))
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}

func (s *Store) MarkSessionCategorySynced(ctx context.Context, sessionID string, categoryID int64, syncedAt int64) error {
	result := s.db.WithContext(ctx).Model(&models.SessionCategory{}).
		Where("session_id = ? AND category_id = ?", sessionID, categoryID).
		Updates(map[string]any{
			"sync_state":     models.SyncStateSynced,
			"last_synced_at": syncedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("marking session category synced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("session category", fmt.Sprintf("%s/%d", sessionID, categoryID))
	}
	s.hub.Publish(KindSessionLinks)
	return nil
}
