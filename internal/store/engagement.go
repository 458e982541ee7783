package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/confbuddy/companion-api/internal/models"
	"gorm.io/gorm"
)

// SetVote records this installation's vote for a session as pending local
// work. A nil score retracts the vote: the row stays as a pending
// tombstone until the server confirms the withdrawal, so a retraction
// survives restarts and failed pushes like any other unsent edit. At
// most one vote row exists per session.
func (s *Store) SetVote(ctx context.Context, sessionID string, score *int) error {
	return s.writeVote(ctx, "", sessionID, score, models.SyncStatePending, nil)
}

// ApplyVote applies a server-confirmed vote (used by pulls and by the
// backend, which keys rows by installation).
func (s *Store) ApplyVote(ctx context.Context, installationID, sessionID string, score *int, syncedAt int64) error {
	return s.writeVote(ctx, installationID, sessionID, score, models.SyncStateSynced, &syncedAt)
}

func (s *Store) writeVote(ctx context.Context, installationID, sessionID string, score *int, state models.SyncState, syncedAt *int64) error {
	if score != nil && (*score < models.MinScore || *score > models.MaxScore) {
		return fmt.Errorf("score %d outside allowed range %d..%d", *score, models.MinScore, models.MaxScore)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if score == nil {
			if state == models.SyncStateSynced {
				// Server-confirmed removal; nothing left to upload.
				return tx.Where("session_id = ? AND installation_id = ?", sessionID, installationID).
					Delete(&models.Vote{}).Error
			}
			return tx.Model(&models.Vote{}).
				Where("session_id = ? AND installation_id = ?", sessionID, installationID).
				Updates(map[string]any{"retracted": true, "sync_state": state}).Error
		}
		vote := &models.Vote{
			SessionID:      sessionID,
			InstallationID: installationID,
			Score:          *score,
			SyncState:      state,
			LastSyncedAt:   syncedAt,
		}
		var existing models.Vote
		err := tx.Where("session_id = ? AND installation_id = ?", sessionID, installationID).
			First(&existing).Error
		if err == nil {
			return tx.Save(vote).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(vote).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("writing vote for session %s: %w", sessionID, err)
	}
	s.hub.Publish(KindVotes)
	return nil
}

// Votes returns this installation's votes. Tombstoned retractions are
// excluded; as far as the UI is concerned the vote is already gone.
func (s *Store) Votes(ctx context.Context) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.db.WithContext(ctx).
		Where("installation_id = ? AND retracted = ?", "", false).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("listing votes: %w", err)
	}
	return votes, nil
}

// DeleteVote removes this installation's vote row outright, used once
// the server has confirmed a retraction.
func (s *Store) DeleteVote(ctx context.Context, sessionID string) error {
	if err := s.db.WithContext(ctx).
		Where("session_id = ? AND installation_id = ?", sessionID, "").
		Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("deleting vote for session %s: %w", sessionID, err)
	}
	s.hub.Publish(KindVotes)
	return nil
}

// VotesForSession returns every installation's vote for a session
// (backend side).
func (s *Store) VotesForSession(ctx context.Context, sessionID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("listing votes for session: %w", err)
	}
	return votes, nil
}

// VotesForInstallation returns one installation's votes (backend side).
func (s *Store) VotesForInstallation(ctx context.Context, installationID string) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.db.WithContext(ctx).
		Where("installation_id = ?", installationID).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("listing votes for installation: %w", err)
	}
	return votes, nil
}

func (s *Store) PendingVotes(ctx context.Context) ([]models.Vote, error) {
	var votes []models.Vote
	if err := s.db.WithContext(ctx).
		Where("installation_id = ? AND sync_state IN ?", "",
			[]models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("listing pending votes: %w", err)
	}
	return votes, nil
}

func (s *Store) MarkVoteSynced(ctx context.Context, sessionID string, syncedAt int64) error {
	return s.setVoteState(ctx, sessionID, map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
}

func (s *Store) SetVoteState(ctx context.Context, sessionID string, state models.SyncState) error {
	return s.setVoteState(ctx, sessionID, map[string]any{"sync_state": state})
}

func (s *Store) setVoteState(ctx context.Context, sessionID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("session_id = ? AND installation_id = ?", sessionID, "").
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating vote state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("vote", sessionID)
	}
	s.hub.Publish(KindVotes)
	return nil
}

// SetFavorite flips this installation's favorite flag for a session,
// recorded as pending local work. Exactly one row per session.
func (s *Store) SetFavorite(ctx context.Context, sessionID string, isFavorite bool) error {
	return s.writeFavorite(ctx, "", sessionID, isFavorite, models.SyncStatePending, nil)
}

// ApplyFavorite applies a server-confirmed favorite row.
func (s *Store) ApplyFavorite(ctx context.Context, installationID, sessionID string, isFavorite bool, syncedAt int64) error {
	return s.writeFavorite(ctx, installationID, sessionID, isFavorite, models.SyncStateSynced, &syncedAt)
}

func (s *Store) writeFavorite(ctx context.Context, installationID, sessionID string, isFavorite bool, state models.SyncState, syncedAt *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fav := &models.Favorite{
		SessionID:      sessionID,
		InstallationID: installationID,
		IsFavorite:     isFavorite,
		SyncState:      state,
		LastSyncedAt:   syncedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Favorite
		err := tx.Where("session_id = ? AND installation_id = ?", sessionID, installationID).
			First(&existing).Error
		if err == nil {
			return tx.Save(fav).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(fav).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("writing favorite for session %s: %w", sessionID, err)
	}
	s.hub.Publish(KindFavorites)
	return nil
}

func (s *Store) Favorites(ctx context.Context) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := s.db.WithContext(ctx).
		Where("installation_id = ?", "").
		Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return favorites, nil
}

func (s *Store) FavoritesForInstallation(ctx context.Context, installationID string) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := s.db.WithContext(ctx).
		Where("installation_id = ?", installationID).
		Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("listing favorites for installation: %w", err)
	}
	return favorites, nil
}

func (s *Store) PendingFavorites(ctx context.Context) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := s.db.WithContext(ctx).
		Where("installation_id = ? AND sync_state IN ?", "",
			[]models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("listing pending favorites: %w", err)
	}
	return favorites, nil
}

func (s *Store) MarkFavoriteSynced(ctx context.Context, sessionID string, syncedAt int64) error {
	return s.setFavoriteState(ctx, sessionID, map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
}

func (s *Store) SetFavoriteState(ctx context.Context, sessionID string, state models.SyncState) error {
	return s.setFavoriteState(ctx, sessionID, map[string]any{"sync_state": state})
}

func (s *Store) setFavoriteState(ctx context.Context, sessionID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("session_id = ? AND installation_id = ?", sessionID, "").
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating favorite state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("favorite", sessionID)
	}
	s.hub.Publish(KindFavorites)
	return nil
}

// SetFeedback stores free-text feedback for a session, overwriting any
// previous submission (last write wins, at most one row per session).
func (s *Store) SetFeedback(ctx context.Context, sessionID, value string) error {
	return s.writeFeedback(ctx, "", sessionID, value, models.SyncStatePending, nil)
}

// ApplyFeedback applies a server-confirmed feedback row.
func (s *Store) ApplyFeedback(ctx context.Context, installationID, sessionID, value string, syncedAt int64) error {
	return s.writeFeedback(ctx, installationID, sessionID, value, models.SyncStateSynced, &syncedAt)
}

func (s *Store) writeFeedback(ctx context.Context, installationID, sessionID, value string, state models.SyncState, syncedAt *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb := &models.Feedback{
		SessionID:      sessionID,
		InstallationID: installationID,
		Value:          value,
		SyncState:      state,
		LastSyncedAt:   syncedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Feedback
		err := tx.Where("session_id = ? AND installation_id = ?", sessionID, installationID).
			First(&existing).Error
		if err == nil {
			return tx.Save(fb).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(fb).Error
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("writing feedback for session %s: %w", sessionID, err)
	}
	s.hub.Publish(KindFeedback)
	return nil
}

func (s *Store) Feedbacks(ctx context.Context) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	if err := s.db.WithContext(ctx).
		Where("installation_id = ?", "").
		Find(&feedbacks).Error; err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return feedbacks, nil
}

func (s *Store) PendingFeedbacks(ctx context.Context) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	if err := s.db.WithContext(ctx).
		Where("installation_id = ? AND sync_state IN ?", "",
			[]models.SyncState{models.SyncStatePending, models.SyncStateInFlight}).
		Find(&feedbacks).Error; err != nil {
		return nil, fmt.Errorf("listing pending feedback: %w", err)
	}
	return feedbacks, nil
}

func (s *Store) MarkFeedbackSynced(ctx context.Context, sessionID string, syncedAt int64) error {
	return s.setFeedbackState(ctx, sessionID, map[string]any{
		"sync_state":     models.SyncStateSynced,
		"last_synced_at": syncedAt,
	})
}

func (s *Store) SetFeedbackState(ctx context.Context, sessionID string, state models.SyncState) error {
	return s.setFeedbackState(ctx, sessionID, map[string]any{"sync_state": state})
}

func (s *Store) setFeedbackState(ctx context.Context, sessionID string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("session_id = ? AND installation_id = ?", sessionID, "").
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating feedback state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError("feedback", sessionID)
	}
	s.hub.Publish(KindFeedback)
	return nil
}
