package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

// RegisterInstallation records a signed anonymous identity. Returns
// false when the identity was already registered.
func (s *Store) RegisterInstallation(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("installation id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Installation
		err := tx.Where("id = ?", id).First(&existing).Error
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(&models.Installation{ID: id, SignedAt: nowMillis()}).Error
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("registering installation: %w", err)
	}
	return created, nil
}

// InstallationExists reports whether an identity has been signed.
func (s *Store) InstallationExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Installation{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking installation: %w", err)
	}
	return count > 0, nil
}
