package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

func (s *Store) UpsertRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Room
		err := tx.Where("id = ?", room.ID).First(&existing).Error
		if err == nil {
			return tx.Save(room).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(room).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting room %d: %w", room.ID, err)
	}
	s.hub.Publish(KindRooms)
	return nil
}

// CreateLocalRoom stores a user-created room under a negative placeholder
// ID with pending state. The ID is remapped once the server assigns a
// canonical one.
func (s *Store) CreateLocalRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if room.ID == 0 {
			var minID *int64
			if err := tx.Model(&models.Room{}).Select("MIN(id)").Scan(&minID).Error; err != nil {
				return err
			}
			room.ID = -1
			if minID != nil && *minID < 0 {
				room.ID = *minID - 1
			}
		}
		room.SyncState = models.SyncStatePending
		room.LastSyncedAt = nil
		return tx.Create(room).Error
	})
	if err != nil {
		return fmt.Errorf("creating local room: %w", err)
	}
	s.hub.Publish(KindRooms)
	return nil
}

func (s *Store) Rooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).
		Order("sort ASC, id ASC").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	return rooms, nil
}

func (s *Store) RoomByID(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("room", id)
		}
		return nil, fmt.Errorf("getting room: %w", err)
	}
	return &room, nil
}

func (s *Store) PendingRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).
		Where("sync_state IN ?", []models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("listing pending rooms: %w", err)
	}
	return rooms, nil
}

func (s *Store) MarkRoomSynced(ctx context.Context, id int64, syncedAt int64) error {
	return s.setRoomState(ctx, id, map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
}

func (s *Store) SetRoomState(ctx context.Context, id int64, state models.SyncState) error {
	return s.setRoomState(ctx, id, map[string]any{"sync_state": state})
}

func (s *Store) setRoomState(ctx context.Context, id int64, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating room state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("room", id)
	}
	s.hub.Publish(KindRooms)
	return nil
}

// RemapRoomID rewrites a placeholder room ID to the server-assigned one,
// along with every session referencing it, and marks the room synced.
func (s *Store) RemapRoomID(ctx context.Context, oldID, newID int64, syncedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Room{}).Where("id = ?", newID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			if err := tx.Where("id = ?", oldID).Delete(&models.Room{}).Error; err != nil {
				return err
			}
		} else {
			result := tx.Model(&models.Room{}).Where("id = ?", oldID).Updates(map[string]any{
				"id":             newID,
				"sync_state":     models.SyncStateSynced,
				"last_synced_at": syncedAt,
			})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return NewNotFoundError("room", oldID)
			}
		}
		return tx.Model(&models.Session{}).Where("room_id = ?", oldID).
			Update("room_id", newID).Error
	})
	if err != nil {
		return fmt.Errorf("remapping room %d -> %d: %w", oldID, newID, err)
	}

	s.hub.Publish(KindRooms)
	s.hub.Publish(KindSessions)
	return nil
}
