package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const localIDPrefix = "local-"

// NewLocalSessionID returns a placeholder ID for a session authored on
// this installation, usable offline until the server assigns a canonical
// one.
func NewLocalSessionID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalSessionID reports whether id is a placeholder awaiting remap.
func IsLocalSessionID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// UpsertSession inserts the session or updates all fields of the existing
// row with the same ID. Safe to call repeatedly with the same data.
func (s *Store) UpsertSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Session
		err := tx.Where("id = ?", session.ID).First(&existing).Error
		if err == nil {
			return tx.Save(session).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(session).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting session %s: %w", session.ID, err)
	}
	s.hub.Publish(KindSessions)
	return nil
}

// CreateLocalSession stores a user-authored session under a placeholder
// ID with pending state, so it renders immediately while offline.
func (s *Store) CreateLocalSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = NewLocalSessionID()
	}
	session.SyncState = models.SyncStatePending
	session.LastSyncedAt = nil
	return s.UpsertSession(ctx, session)
}

// Sessions returns every session ordered chronologically.
func (s *Store) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Order("starts_at ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) SessionByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("session", id)
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &session, nil
}

// PendingSessions returns rows awaiting sync. In-flight rows left behind
// by a crash are included so they get re-attempted.
func (s *Store) PendingSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("sync_state IN ?", []models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Order("starts_at ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("listing pending sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) MarkSessionSynced(ctx context.Context, id string, syncedAt int64) error {
	return s.setSessionState(ctx, id, map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
}

func (s *Store) SetSessionState(ctx context.Context, id string, state models.SyncState) error {
	return s.setSessionState(ctx, id, map[string]any{"sync_state": state})
}

func (s *Store) setSessionState(ctx context.Context, id string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating session state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("session", id)
	}
	s.hub.Publish(KindSessions)
	return nil
}

// RemapSessionID atomically rewrites a placeholder session ID to the
// server-assigned canonical one, including every junction, vote, favorite
// and feedback row that references it, and marks the session synced.
// Partial remaps are impossible: all rewrites share one transaction.
func (s *Store) RemapSessionID(ctx context.Context, oldID, newID string, syncedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Session{}).Where("id = ?", newID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			// A pull already delivered the canonical row; the
			// placeholder is superseded.
			if err := tx.Where("id = ?", oldID).Delete(&models.Session{}).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&models.Session{}).Where("id = ?", oldID).Updates(map[string]any{
				"id":             newID,
				"sync_state":     models.SyncStateSynced,
				"last_synced_at": syncedAt,
			})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return NewNotFoundError("session", oldID)
			}
		}

		refs := []struct {
			model any
			key   string
		}{
			{&models.SessionSpeaker{}, "speaker_id"},
			{&models.SessionCategory{}, "category_id"},
			{&models.Vote{}, "installation_id"},
			{&models.Favorite{}, "installation_id"},
			{&models.Feedback{}, "installation_id"},
		}
		for _, ref := range refs {
			// A row already stored under the canonical ID (applied from
			// a pull before the remap) would collide with the rewritten
			// one. The local row wins, same as everywhere else.
			sub := tx.Model(ref.model).Select(ref.key).Where("session_id = ?", oldID)
			if err := tx.Where("session_id = ? AND "+ref.key+" IN (?)", newID, sub).
				Delete(ref.model).Error; err != nil {
				return err
			}
			if err := tx.Model(ref.model).Where("session_id = ?", oldID).
				Update("session_id", newID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remapping session %s -> %s: %w", oldID, newID, err)
	}

	s.hub.Publish(KindSessions)
	s.hub.Publish(KindSessionLinks)
	s.hub.Publish(KindVotes)
	s.hub.Publish(KindFavorites)
	s.hub.Publish(KindFeedback)
	return nil
}

// ClearSyncedSessions removes every already-synced session and its synced
// junction rows ahead of a fresh bulk pull. Pending local work survives.
func (s *Store) ClearSyncedSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sync_state = ?", models.SyncStateSynced).
			Delete(&models.SessionCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sync_state = ?", models.SyncStateSynced).
			Delete(&models.SessionSpeaker{}).Error; err != nil {
			return err
		}
		return tx.Where("sync_state = ?", models.SyncStateSynced).
			Delete(&models.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("clearing synced sessions: %w", err)
	}
	s.hub.Publish(KindSessions)
	s.hub.Publish(KindSessionLinks)
	return nil
}
