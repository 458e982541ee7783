package syncer

import (
	"context"
	"fmt"
	"log"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
)

// Pulls apply server state to the local store. The rule throughout is
// that a server row never overwrites a local row still awaiting upload;
// the local edit wins until its own push settles it.

// Bootstrap performs the ordered first pull after startup or re-consent.
// Referenced kinds come before referencing kinds, and each kind degrades
// independently: a failed pull is logged and the rest still run, leaving
// whatever local data exists on screen.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	started := c.now()
	var failed int

	if categories, err := c.client.Categories(ctx); err != nil {
		failed++
		log.Printf("[ERROR] pulling categories: %v", err)
	} else {
		c.applyCategories(ctx, categories)
	}

	if rooms, err := c.client.Rooms(ctx); err != nil {
		failed++
		log.Printf("[ERROR] pulling rooms: %v", err)
	} else {
		c.applyRooms(ctx, rooms)
	}

	if speakers, err := c.client.Speakers(ctx); err != nil {
		failed++
		log.Printf("[ERROR] pulling speakers: %v", err)
	} else {
		c.applySpeakers(ctx, speakers)
	}

	if sessions, err := c.client.Sessions(ctx); err != nil {
		failed++
		log.Printf("[ERROR] pulling sessions: %v", err)
	} else {
		// Drop previously-synced rows first so sessions the server
		// deleted disappear. Pending local work survives the clear.
		if err := c.store.ClearSyncedSessions(ctx); err != nil {
			log.Printf("[ERROR] clearing synced sessions: %v", err)
		}
		c.applySessions(ctx, sessions)

		if links, err := c.client.SessionSpeakers(ctx); err != nil {
			failed++
			log.Printf("[ERROR] pulling session speakers: %v", err)
		} else {
			c.applySessionSpeakers(ctx, links)
		}
		if links, err := c.client.SessionCategories(ctx); err != nil {
			failed++
			log.Printf("[ERROR] pulling session categories: %v", err)
		} else {
			c.applySessionCategories(ctx, links)
		}
	}

	if err := c.pullEngagement(ctx); err != nil {
		failed++
		log.Printf("[ERROR] pulling votes and favorites: %v", err)
	}

	if err := c.pullCatalog(ctx, true); err != nil {
		failed++
		log.Printf("[ERROR] pulling podcast catalog: %v", err)
	}

	if failed > 0 {
		return fmt.Errorf("bootstrap finished with %d of 8 pulls failed", failed)
	}

	c.mu.Lock()
	c.lastDelta = started
	c.mu.Unlock()
	log.Printf("[INFO] Bootstrap pull complete")
	return nil
}

// PullDeltas fetches entities changed since the last successful pull.
// The watermark only advances when every kind succeeds, so a partial
// failure re-fetches rather than skips.
func (c *Coordinator) PullDeltas(ctx context.Context) error {
	if !c.client.HasIdentity() {
		return nil
	}

	c.mu.Lock()
	since := c.lastDelta
	c.mu.Unlock()

	started := c.now()

	categories, err := c.client.CategoriesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("pulling category deltas: %w", err)
	}
	rooms, err := c.client.RoomsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("pulling room deltas: %w", err)
	}
	speakers, err := c.client.SpeakersSince(ctx, since)
	if err != nil {
		return fmt.Errorf("pulling speaker deltas: %w", err)
	}
	sessions, err := c.client.SessionsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("pulling session deltas: %w", err)
	}

	c.applyCategories(ctx, categories)
	c.applyRooms(ctx, rooms)
	c.applySpeakers(ctx, speakers)
	c.applySessions(ctx, sessions)

	// Engagement changed on the server (a vote placed from another
	// device, say) lands here too, with the same pending-skip guard.
	if err := c.pullEngagement(ctx); err != nil {
		return fmt.Errorf("pulling engagement: %w", err)
	}

	if n := len(categories) + len(rooms) + len(speakers) + len(sessions); n > 0 {
		log.Printf("[DEBUG] applied %d changed entities since %d", n, since)
	}

	c.mu.Lock()
	c.lastDelta = started
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) applyCategories(ctx context.Context, categories []models.Category) {
	for i := range categories {
		cat := categories[i]
		cat.SyncState = models.SyncStateSynced
		if err := c.store.UpsertCategory(ctx, &cat); err != nil {
			log.Printf("[ERROR] applying category %d: %v", cat.ID, err)
		}
	}
}

func (c *Coordinator) applyRooms(ctx context.Context, rooms []models.Room) {
	for i := range rooms {
		room := rooms[i]
		if existing, err := c.store.RoomByID(ctx, room.ID); err == nil &&
			existing.SyncState != models.SyncStateSynced {
			continue
		}
		room.SyncState = models.SyncStateSynced
		if err := c.store.UpsertRoom(ctx, &room); err != nil {
			log.Printf("[ERROR] applying room %d: %v", room.ID, err)
		}
	}
}

func (c *Coordinator) applySpeakers(ctx context.Context, speakers []models.Speaker) {
	for i := range speakers {
		sp := speakers[i]
		sp.SyncState = models.SyncStateSynced
		if err := c.store.UpsertSpeaker(ctx, &sp); err != nil {
			log.Printf("[ERROR] applying speaker %s: %v", sp.ID, err)
		}
	}
}

func (c *Coordinator) applySessions(ctx context.Context, sessions []models.Session) {
	for i := range sessions {
		session := sessions[i]
		// A locally-edited row keeps its unsent changes until its own
		// push resolves them one way or the other.
		if existing, err := c.store.SessionByID(ctx, session.ID); err == nil &&
			existing.SyncState != models.SyncStateSynced {
			continue
		}
		session.SyncState = models.SyncStateSynced
		if err := c.store.UpsertSession(ctx, &session); err != nil {
			log.Printf("[ERROR] applying session %s: %v", session.ID, err)
		}
	}
}

func (c *Coordinator) applySessionSpeakers(ctx context.Context, links []models.SessionSpeaker) {
	for i := range links {
		link := links[i]
		link.SyncState = models.SyncStateSynced
		if err := c.store.UpsertSessionSpeaker(ctx, &link); err != nil {
			log.Printf("[ERROR] applying session speaker %s/%s: %v", link.SessionID, link.SpeakerID, err)
		}
	}
}

func (c *Coordinator) applySessionCategories(ctx context.Context, links []models.SessionCategory) {
	for i := range links {
		link := links[i]
		link.SyncState = models.SyncStateSynced
		if err := c.store.UpsertSessionCategory(ctx, &link); err != nil {
			log.Printf("[ERROR] applying session category %s/%d: %v", link.SessionID, link.CategoryID, err)
		}
	}
}

// pullEngagement mirrors this installation's server-side votes and
// favorites, skipping anything with an unsent local change.
func (c *Coordinator) pullEngagement(ctx context.Context) error {
	votes, err := c.client.Votes(ctx)
	if err != nil {
		return fmt.Errorf("pulling votes: %w", err)
	}
	pending, err := c.store.PendingVotes(ctx)
	if err != nil {
		return err
	}
	skip := make(map[string]bool, len(pending))
	for _, v := range pending {
		skip[v.SessionID] = true
	}
	for _, v := range votes {
		if skip[v.SessionID] {
			continue
		}
		if err := c.store.ApplyVote(ctx, "", v.SessionID, v.Score, c.now()); err != nil {
			log.Printf("[ERROR] applying vote for %s: %v", v.SessionID, err)
		}
	}

	favorites, err := c.client.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("pulling favorites: %w", err)
	}
	pendingFavs, err := c.store.PendingFavorites(ctx)
	if err != nil {
		return err
	}
	skipFav := make(map[string]bool, len(pendingFavs))
	for _, f := range pendingFavs {
		skipFav[f.SessionID] = true
	}
	for _, f := range favorites {
		if skipFav[f.SessionID] {
			continue
		}
		if err := c.store.ApplyFavorite(ctx, "", f.SessionID, f.IsFavorite, c.now()); err != nil {
			log.Printf("[ERROR] applying favorite for %s: %v", f.SessionID, err)
		}
	}
	return nil
}

// pullPodcasts is the KindPodcast queue handler. The first pull fetches
// the whole catalog; later pulls fetch only channels changed since the
// last success.
func (c *Coordinator) pullPodcasts(ctx context.Context) error {
	c.mu.Lock()
	full := c.lastCatalog == 0
	c.mu.Unlock()
	return c.pullCatalog(ctx, full)
}

func (c *Coordinator) pullCatalog(ctx context.Context, full bool) error {
	c.mu.Lock()
	since := c.lastCatalog
	c.mu.Unlock()

	started := c.now()

	var channels []store.ChannelWithEpisodes
	var err error
	if full {
		channels, err = c.client.PodcastCatalog(ctx)
	} else {
		channels, err = c.client.PodcastsSince(ctx, since)
	}
	if err != nil {
		return fmt.Errorf("pulling podcast catalog: %w", err)
	}

	if len(channels) > 0 {
		if err := c.store.SyncCatalog(ctx, channels); err != nil {
			return fmt.Errorf("storing podcast catalog: %w", err)
		}
		log.Printf("[DEBUG] synced %d podcast channel(s)", len(channels))
	}

	c.mu.Lock()
	c.lastCatalog = started
	c.mu.Unlock()
	return nil
}
