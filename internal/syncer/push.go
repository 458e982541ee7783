package syncer

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/confbuddy/companion-api/internal/store"
)

// Push handlers follow one shape: mark the row in flight, issue the
// remote call, then either mark it synced, mark it rejected, or put it
// back to pending for the next sweep. A row is never deleted on failure.

func (c *Coordinator) pushVote(ctx context.Context, task Task) error {
	votes, err := c.store.PendingVotes(ctx)
	if err != nil {
		return fmt.Errorf("reading pending votes: %w", err)
	}
	var vote *models.Vote
	for i := range votes {
		if votes[i].SessionID == task.SessionID {
			vote = &votes[i]
			break
		}
	}
	if vote == nil {
		return nil // already settled
	}

	if err := c.store.SetVoteState(ctx, vote.SessionID, models.SyncStateInFlight); err != nil {
		return err
	}

	// A tombstoned row posts a nil score; the row itself is only
	// deleted once the server acknowledges the withdrawal.
	var score *int
	if !vote.Retracted {
		s := vote.Score
		score = &s
	}
	ok, err := c.client.PostVote(ctx, vote.SessionID, score)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetVoteState(ctx, vote.SessionID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking vote rejected: %v", stateErr)
			}
			return err
		}
		c.backToPending(func() error {
			return c.store.SetVoteState(ctx, vote.SessionID, models.SyncStatePending)
		})
		return err
	}
	if !ok {
		// No identity yet; leave the row pending for later.
		return c.store.SetVoteState(ctx, vote.SessionID, models.SyncStatePending)
	}
	if vote.Retracted {
		return c.store.DeleteVote(ctx, vote.SessionID)
	}
	return c.store.MarkVoteSynced(ctx, vote.SessionID, c.now())
}

func (c *Coordinator) pushFavorite(ctx context.Context, task Task) error {
	favorites, err := c.store.PendingFavorites(ctx)
	if err != nil {
		return fmt.Errorf("reading pending favorites: %w", err)
	}
	var fav *models.Favorite
	for i := range favorites {
		if favorites[i].SessionID == task.SessionID {
			fav = &favorites[i]
			break
		}
	}
	if fav == nil {
		return nil
	}

	if err := c.store.SetFavoriteState(ctx, fav.SessionID, models.SyncStateInFlight); err != nil {
		return err
	}

	ok, err := c.client.PostFavorite(ctx, fav.SessionID, fav.IsFavorite)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetFavoriteState(ctx, fav.SessionID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking favorite rejected: %v", stateErr)
			}
			return err
		}
		c.backToPending(func() error {
			return c.store.SetFavoriteState(ctx, fav.SessionID, models.SyncStatePending)
		})
		return err
	}
	if !ok {
		return c.store.SetFavoriteState(ctx, fav.SessionID, models.SyncStatePending)
	}
	return c.store.MarkFavoriteSynced(ctx, fav.SessionID, c.now())
}

func (c *Coordinator) pushFeedback(ctx context.Context, task Task) error {
	feedbacks, err := c.store.PendingFeedbacks(ctx)
	if err != nil {
		return fmt.Errorf("reading pending feedback: %w", err)
	}
	var fb *models.Feedback
	for i := range feedbacks {
		if feedbacks[i].SessionID == task.SessionID {
			fb = &feedbacks[i]
			break
		}
	}
	if fb == nil {
		return nil
	}

	if err := c.store.SetFeedbackState(ctx, fb.SessionID, models.SyncStateInFlight); err != nil {
		return err
	}

	ok, err := c.client.PostFeedback(ctx, fb.SessionID, fb.Value)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetFeedbackState(ctx, fb.SessionID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking feedback rejected: %v", stateErr)
			}
			return err
		}
		c.backToPending(func() error {
			return c.store.SetFeedbackState(ctx, fb.SessionID, models.SyncStatePending)
		})
		return err
	}
	if !ok {
		return c.store.SetFeedbackState(ctx, fb.SessionID, models.SyncStatePending)
	}
	return c.store.MarkFeedbackSynced(ctx, fb.SessionID, c.now())
}

// pushSession uploads a locally-authored or locally-edited session. For
// placeholder IDs the server response carries the canonical ID, and the
// remap rewrites the session plus everything referencing it in one
// transaction.
func (c *Coordinator) pushSession(ctx context.Context, task Task) error {
	session, err := c.store.SessionByID(ctx, task.SessionID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !session.SyncState.Pending() || session.SyncState == models.SyncStateRejected {
		return nil
	}

	if err := c.store.SetSessionState(ctx, session.ID, models.SyncStateInFlight); err != nil {
		return err
	}

	resp, err := c.client.SendSession(ctx, session)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetSessionState(ctx, session.ID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking session rejected: %v", stateErr)
			}
			return err
		}
		c.backToPending(func() error {
			return c.store.SetSessionState(ctx, session.ID, models.SyncStatePending)
		})
		return err
	}
	if resp == nil {
		return c.store.SetSessionState(ctx, session.ID, models.SyncStatePending)
	}
	if !resp.Success {
		if err := c.store.SetSessionState(ctx, session.ID, models.SyncStateRejected); err != nil {
			log.Printf("[ERROR] marking session rejected: %v", err)
		}
		return fmt.Errorf("session %s rejected by server: %s", session.ID, resp.Message)
	}

	if store.IsLocalSessionID(session.ID) && resp.AssignedID != "" {
		return c.store.RemapSessionID(ctx, session.ID, resp.AssignedID, c.now())
	}
	return c.store.MarkSessionSynced(ctx, session.ID, c.now())
}

func (c *Coordinator) pushRoom(ctx context.Context, task Task) error {
	room, err := c.store.RoomByID(ctx, task.RoomID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !room.SyncState.Pending() || room.SyncState == models.SyncStateRejected {
		return nil
	}

	if err := c.store.SetRoomState(ctx, room.ID, models.SyncStateInFlight); err != nil {
		return err
	}

	resp, err := c.client.SendRoom(ctx, room)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetRoomState(ctx, room.ID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking room rejected: %v", stateErr)
			}
			return err
		}
		c.backToPending(func() error {
			return c.store.SetRoomState(ctx, room.ID, models.SyncStatePending)
		})
		return err
	}
	if resp == nil {
		return c.store.SetRoomState(ctx, room.ID, models.SyncStatePending)
	}
	if !resp.Success {
		if err := c.store.SetRoomState(ctx, room.ID, models.SyncStateRejected); err != nil {
			log.Printf("[ERROR] marking room rejected: %v", err)
		}
		return fmt.Errorf("room %d rejected by server: %s", room.ID, resp.Message)
	}

	if room.ID < 0 && resp.AssignedID != "" {
		assigned, err := strconv.ParseInt(resp.AssignedID, 10, 64)
		if err != nil {
			return fmt.Errorf("server assigned non-numeric room id %q: %w", resp.AssignedID, err)
		}
		return c.store.RemapRoomID(ctx, room.ID, assigned, c.now())
	}
	return c.store.MarkRoomSynced(ctx, room.ID, c.now())
}

func (c *Coordinator) pushSessionSpeaker(ctx context.Context, task Task) error {
	// A link referencing a placeholder session can't be accepted yet;
	// it follows automatically once the session remap rewrites it.
	if store.IsLocalSessionID(task.SessionID) {
		return nil
	}

	link := &models.SessionSpeaker{SessionID: task.SessionID, SpeakerID: task.SpeakerID}
	resp, err := c.client.SendSessionSpeaker(ctx, link)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetSessionSpeakerState(ctx, task.SessionID, task.SpeakerID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking session speaker rejected: %v", stateErr)
			}
		}
		return err
	}
	if resp == nil {
		return nil
	}
	if !resp.Success {
		if err := c.store.SetSessionSpeakerState(ctx, task.SessionID, task.SpeakerID, models.SyncStateRejected); err != nil {
			log.Printf("[ERROR] marking session speaker rejected: %v", err)
		}
		return fmt.Errorf("session speaker %s/%s rejected: %s", task.SessionID, task.SpeakerID, resp.Message)
	}
	return c.store.MarkSessionSpeakerSynced(ctx, task.SessionID, task.SpeakerID, c.now())
}

func (c *Coordinator) pushSessionCategory(ctx context.Context, task Task) error {
	if store.IsLocalSessionID(task.SessionID) {
		return nil
	}

	link := &models.SessionCategory{SessionID: task.SessionID, CategoryID: task.CategoryID}
	resp, err := c.client.SendSessionCategory(ctx, link)
	if err != nil {
		if remote.IsRejection(err) {
			if stateErr := c.store.SetSessionCategoryState(ctx, task.SessionID, task.CategoryID, models.SyncStateRejected); stateErr != nil {
				log.Printf("[ERROR] marking session category rejected: %v", stateErr)
			}
		}
		return err
	}
	if resp == nil {
		return nil
	}
	if !resp.Success {
		if err := c.store.SetSessionCategoryState(ctx, task.SessionID, task.CategoryID, models.SyncStateRejected); err != nil {
			log.Printf("[ERROR] marking session category rejected: %v", err)
		}
		return fmt.Errorf("session category %s/%d rejected: %s", task.SessionID, task.CategoryID, resp.Message)
	}
	return c.store.MarkSessionCategorySynced(ctx, task.SessionID, task.CategoryID, c.now())
}

// backToPending restores a row for the next sweep after a transient
// failure; losing the restore only delays the retry, so it is logged
// and not propagated.
func (c *Coordinator) backToPending(restore func() error) {
	if err := restore(); err != nil && !store.IsNotFound(err) {
		log.Printf("[ERROR] restoring pending state: %v", err)
	}
}
