package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

func (s *Store) UpsertCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Category
		err := tx.Where("id = ?", category.ID).First(&existing).Error
		if err == nil {
			return tx.Save(category).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(category).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting category %d: %w", category.ID, err)
	}
	s.hub.Publish(KindCategories)
	return nil
}

func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Order("sort ASC, id ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

func (s *Store) CategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("category", id)
		}
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return &category, nil
}

func (s *Store) MarkCategorySynced(ctx context.Context, id int64, syncedAt int64) error {
	result := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("marking category synced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("category", id)
	}
	s.hub.Publish(KindCategories)
	return nil
}
