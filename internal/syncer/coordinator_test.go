package syncer

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testNow = int64(424242)

func setupTestStore(t *testing.T) *store.Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled :memory: database is one database per connection; pin the
	// pool so every goroutine sees the same one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	st := store.New(&database.DB{DB: db})
	require.NoError(t, st.Migrate())
	t.Cleanup(st.Close)
	return st
}

func newTestCoordinator(t *testing.T, st *store.Store, handler http.Handler) *Coordinator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := remote.NewClient(remote.Config{
		BaseURL:     server.URL,
		Token:       "test-installation",
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	})
	return New(st, client, WithNowFunc(func() int64 { return testNow }))
}

func TestPushVote_Success(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var got remote.VotePayload
	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	score := 4
	require.NoError(t, st.SetVote(ctx, "s1", &score))
	require.NoError(t, c.pushVote(ctx, Task{SessionID: "s1"}))

	assert.Equal(t, "s1", got.SessionID)
	require.NotNil(t, got.Score)
	assert.Equal(t, 4, *got.Score)

	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, models.SyncStateSynced, votes[0].SyncState)
	require.NotNil(t, votes[0].LastSyncedAt)
	assert.Equal(t, testNow, *votes[0].LastSyncedAt)
}

func TestPushVote_RejectionMarksRejected(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown session"})
	}))

	score := 4
	require.NoError(t, st.SetVote(ctx, "s1", &score))
	err := c.pushVote(ctx, Task{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, remote.IsRejection(err))

	// Rejected rows drop out of the pending scan but stay visible.
	pending, err := st.PendingVotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, models.SyncStateRejected, votes[0].SyncState)
}

func TestPushVote_TransientFailureStaysPending(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	score := 4
	require.NoError(t, st.SetVote(ctx, "s1", &score))
	err := c.pushVote(ctx, Task{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))

	pending, err := st.PendingVotes(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.SyncStatePending, pending[0].SyncState)
}

func TestPushVote_Retract(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var got remote.VotePayload
	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	score := 4
	require.NoError(t, st.ApplyVote(ctx, "", "s1", &score, 100))
	require.NoError(t, st.SetVote(ctx, "s1", nil))

	require.NoError(t, c.pushVote(ctx, Task{SessionID: "s1"}))
	assert.Equal(t, "s1", got.SessionID)
	assert.Nil(t, got.Score)

	// The confirmed withdrawal removes the tombstone.
	pending, err := st.PendingVotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPushVote_RetractionSurvivesTransientFailure(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var failing atomic.Bool
	failing.Store(true)
	var lastPosted remote.VotePayload
	mux := http.NewServeMux()
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// The server still holds the withdrawn score.
			score := 5
			require.NoError(t, json.NewEncoder(w).Encode([]remote.VotePayload{{SessionID: "srv-1", Score: &score}}))
			return
		}
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastPosted))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/favorite", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([]remote.FavoritePayload{}))
	})
	c := newTestCoordinator(t, st, mux)

	score := 5
	require.NoError(t, st.ApplyVote(ctx, "", "srv-1", &score, 100))
	require.NoError(t, st.SetVote(ctx, "srv-1", nil))

	// The failed attempt leaves the withdrawal on the books for the
	// sweep to retry.
	err := c.pushVote(ctx, Task{SessionID: "srv-1"})
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))

	pending, err := st.PendingVotes(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Retracted)

	// A pull in between must not resurrect the server's stale score.
	require.NoError(t, c.pullEngagement(ctx))
	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	assert.Empty(t, votes)

	// The retry lands the withdrawal and clears the tombstone.
	failing.Store(false)
	require.NoError(t, c.pushVote(ctx, Task{SessionID: "srv-1"}))
	assert.Equal(t, "srv-1", lastPosted.SessionID)
	assert.Nil(t, lastPosted.Score)

	pending, err = st.PendingVotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPushVote_AlreadySyncedIsNoop(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a settled vote")
	}))

	require.NoError(t, c.pushVote(ctx, Task{SessionID: "never-voted"}))
}

func TestPushSession_PlaceholderRemap(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.SyncResponse{Success: true, AssignedID: "srv-99"})
	}))

	session := &models.Session{Title: "My Talk"}
	require.NoError(t, st.CreateLocalSession(ctx, session))
	score := 5
	require.NoError(t, st.SetVote(ctx, session.ID, &score))

	require.NoError(t, c.pushSession(ctx, Task{SessionID: session.ID}))

	remapped, err := st.SessionByID(ctx, "srv-99")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateSynced, remapped.SyncState)

	_, err = st.SessionByID(ctx, session.ID)
	assert.True(t, store.IsNotFound(err))

	// The vote followed the remap and will upload under the canonical id.
	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "srv-99", votes[0].SessionID)
}

func TestPushSession_BusinessRejection(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.SyncResponse{Success: false, Message: "a session with this title already exists"})
	}))

	session := &models.Session{Title: "Duplicate"}
	require.NoError(t, st.CreateLocalSession(ctx, session))

	err := c.pushSession(ctx, Task{SessionID: session.ID})
	require.Error(t, err)

	stored, err := st.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateRejected, stored.SyncState)
}

func TestPushSession_EditedCanonicalSessionKeepsID(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.SyncResponse{Success: true})
	}))

	require.NoError(t, st.UpsertSession(ctx, &models.Session{
		ID: "srv-1", Title: "Edited Title", SyncState: models.SyncStatePending,
	}))

	require.NoError(t, c.pushSession(ctx, Task{SessionID: "srv-1"}))

	stored, err := st.SessionByID(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateSynced, stored.SyncState)
}

func TestPushRoom_PlaceholderRemap(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.SyncResponse{Success: true, AssignedID: "7"})
	}))

	room := &models.Room{Name: "Workshop A"}
	require.NoError(t, st.CreateLocalRoom(ctx, room))
	roomID := room.ID
	require.NoError(t, st.UpsertSession(ctx, &models.Session{ID: "s1", Title: "Talk", RoomID: &roomID}))

	require.NoError(t, c.pushRoom(ctx, Task{RoomID: room.ID}))

	remapped, err := st.RoomByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateSynced, remapped.SyncState)

	session, err := st.SessionByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, session.RoomID)
	assert.Equal(t, int64(7), *session.RoomID)
}

func TestWorkers_FailingRoomDoesNotBlockVotes(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var roomHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/send/rooms", func(w http.ResponseWriter, r *http.Request) {
		roomHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := remote.NewClient(remote.Config{
		BaseURL:     server.URL,
		Token:       "test-installation",
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
	})
	c := New(st, client,
		WithNowFunc(func() int64 { return testNow }),
		WithInterval(20*time.Millisecond))

	require.NoError(t, st.CreateLocalRoom(ctx, &models.Room{Name: "Broken Room"}))
	score := 3
	require.NoError(t, st.SetVote(ctx, "s1", &score))

	require.NoError(t, c.Start(ctx))
	defer c.Close()

	// The vote worker keeps making progress while the room worker fails
	// every sweep.
	assert.Eventually(t, func() bool {
		votes, err := st.Votes(ctx)
		return err == nil && len(votes) == 1 && votes[0].SyncState == models.SyncStateSynced
	}, 3*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return roomHits.Load() > 0 }, 3*time.Second, 10*time.Millisecond)

	pending, err := st.PendingRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPushSessionSpeaker_DeferredWhileSessionIsLocal(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("link referencing a placeholder session must not be sent")
	}))

	session := &models.Session{Title: "My Talk"}
	require.NoError(t, st.CreateLocalSession(ctx, session))
	require.NoError(t, st.UpsertSpeaker(ctx, &models.Speaker{ID: "sp1", FirstName: "Ada"}))
	require.NoError(t, st.LinkSessionSpeaker(ctx, session.ID, "sp1"))

	require.NoError(t, c.pushSessionSpeaker(ctx, Task{SessionID: session.ID, SpeakerID: "sp1"}))

	// Still pending; the next sweep after the session remap sends it.
	pending, err := st.PendingSessionSpeakers(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPushSessionSpeaker_Success(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.SyncResponse{Success: true})
	}))

	require.NoError(t, st.UpsertSession(ctx, &models.Session{ID: "srv-1", Title: "Talk"}))
	require.NoError(t, st.UpsertSpeaker(ctx, &models.Speaker{ID: "sp1", FirstName: "Ada"}))
	require.NoError(t, st.LinkSessionSpeaker(ctx, "srv-1", "sp1"))

	require.NoError(t, c.pushSessionSpeaker(ctx, Task{SessionID: "srv-1", SpeakerID: "sp1"}))

	pending, err := st.PendingSessionSpeakers(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func scheduleBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("/get/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Category{{ID: 1, Title: "Backend"}})
	})
	mux.HandleFunc("/get/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Room{{ID: 10, Name: "Main Hall"}})
	})
	mux.HandleFunc("/get/speakers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Speaker{{ID: "sp1", FirstName: "Ada"}})
	})
	mux.HandleFunc("/get/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Session{{ID: "srv-1", Title: "Keynote", StartsAt: 1000, EndsAt: 2000}})
	})
	mux.HandleFunc("/get/session-speakers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SessionSpeaker{{SessionID: "srv-1", SpeakerID: "sp1"}})
	})
	mux.HandleFunc("/get/session-categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SessionCategory{{SessionID: "srv-1", CategoryID: 1}})
	})
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		score := 5
		writeJSON(w, []remote.VotePayload{{SessionID: "srv-1", Score: &score}})
	})
	mux.HandleFunc("/favorite", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []remote.FavoritePayload{{SessionID: "srv-1", IsFavorite: true}})
	})
	mux.HandleFunc("/podcast/all", func(w http.ResponseWriter, r *http.Request) {
		catalog := []store.ChannelWithEpisodes{{
			Channel: models.PodcastChannel{ID: 1, Title: "Go Time"},
			Episodes: []store.EpisodeWithCategories{
				{Episode: models.PodcastEpisode{ID: "e1", GUID: "g1", Title: "One"}},
			},
		}}
		require.NoError(t, gob.NewEncoder(w).Encode(catalog))
	})
	return mux
}

func TestBootstrap_FullPull(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, scheduleBackend(t))
	require.NoError(t, c.Bootstrap(ctx))

	sessions, err := st.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.SyncStateSynced, sessions[0].SyncState)

	rooms, err := st.Rooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	links, err := st.SessionSpeakers(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 5, votes[0].Score)
	assert.Equal(t, models.SyncStateSynced, votes[0].SyncState)

	channels, total, err := st.ListChannels(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, channels, 1)
	assert.Equal(t, "Go Time", channels[0].Title)

	// The delta watermark advanced to the bootstrap start.
	c.mu.Lock()
	assert.Equal(t, testNow, c.lastDelta)
	c.mu.Unlock()
}

func TestBootstrap_PartialFailureReported(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestCoordinator(t, st, mux)

	err := c.Bootstrap(ctx)
	require.Error(t, err)

	// Watermark untouched so the next attempt re-pulls everything.
	c.mu.Lock()
	assert.Zero(t, c.lastDelta)
	c.mu.Unlock()
}

func TestBootstrap_PendingEngagementNotOverwritten(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := newTestCoordinator(t, st, scheduleBackend(t))

	// The device voted 2 offline; the server still has the old 5.
	score := 2
	require.NoError(t, st.SetVote(ctx, "srv-1", &score))

	require.NoError(t, c.Bootstrap(ctx))

	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 2, votes[0].Score)
	assert.Equal(t, models.SyncStatePending, votes[0].SyncState)
}

func TestPullDeltas_LocalEditsWin(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("/sync/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Category{})
	})
	mux.HandleFunc("/sync/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Room{})
	})
	mux.HandleFunc("/sync/speakers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Speaker{})
	})
	mux.HandleFunc("/sync/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Session{
			{ID: "edited", Title: "Server Title"},
			{ID: "clean", Title: "Server Title"},
		})
	})
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []remote.VotePayload{})
	})
	mux.HandleFunc("/favorite", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []remote.FavoritePayload{})
	})
	c := newTestCoordinator(t, st, mux)

	require.NoError(t, st.UpsertSession(ctx, &models.Session{
		ID: "edited", Title: "Local Edit", SyncState: models.SyncStatePending,
	}))
	require.NoError(t, st.UpsertSession(ctx, &models.Session{
		ID: "clean", Title: "Old Title", SyncState: models.SyncStateSynced,
	}))

	require.NoError(t, c.PullDeltas(ctx))

	edited, err := st.SessionByID(ctx, "edited")
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", edited.Title)
	assert.Equal(t, models.SyncStatePending, edited.SyncState)

	clean, err := st.SessionByID(ctx, "clean")
	require.NoError(t, err)
	assert.Equal(t, "Server Title", clean.Title)

	c.mu.Lock()
	assert.Equal(t, testNow, c.lastDelta)
	c.mu.Unlock()
}

func TestPullDeltas_RefreshesEngagement(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	for _, path := range []string{"/sync/categories", "/sync/rooms", "/sync/speakers", "/sync/sessions"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []struct{}{})
		})
	}
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		score := 5
		writeJSON(w, []remote.VotePayload{{SessionID: "srv-1", Score: &score}})
	})
	mux.HandleFunc("/favorite", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []remote.FavoritePayload{{SessionID: "srv-1", IsFavorite: true}})
	})
	c := newTestCoordinator(t, st, mux)

	// A vote placed from another device shows up without a bootstrap.
	require.NoError(t, c.PullDeltas(ctx))

	votes, err := st.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 5, votes[0].Score)
	assert.Equal(t, models.SyncStateSynced, votes[0].SyncState)

	favorites, err := st.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.True(t, favorites[0].IsFavorite)
}

func TestPullDeltas_WatermarkHeldOnFailure(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestCoordinator(t, st, mux)

	err := c.PullDeltas(ctx)
	require.Error(t, err)
	assert.Positive(t, calls.Load())

	c.mu.Lock()
	assert.Zero(t, c.lastDelta)
	c.mu.Unlock()
}

func TestCoordinator_LocalWriteTriggersImmediatePush(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := remote.NewClient(remote.Config{
		BaseURL:     server.URL,
		Token:       "test-installation",
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
	})
	// The sweep interval is effectively never; only the write-triggered
	// path can sync this vote.
	c := New(st, client,
		WithNowFunc(func() int64 { return testNow }),
		WithInterval(time.Hour))
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	// Let the one startup sweep pass before writing.
	time.Sleep(50 * time.Millisecond)

	score := 4
	require.NoError(t, st.SetVote(ctx, "s1", &score))

	assert.Eventually(t, func() bool {
		votes, err := st.Votes(ctx)
		return err == nil && len(votes) == 1 && votes[0].SyncState == models.SyncStateSynced
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCoordinator_StartAndClose(t *testing.T) {
	st := setupTestStore(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestCoordinator(t, st, mux)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.Error(t, c.Start(ctx), "second start must fail")
	c.Close()

	// Close is idempotent and a stopped coordinator can be restarted.
	c.Close()
	require.NoError(t, c.Start(ctx))
	c.Close()
}

func TestCoordinator_NotifyNeverBlocks(t *testing.T) {
	st := setupTestStore(t)
	c := New(st, remote.NewClient(remote.Config{BaseURL: "http://localhost:0"}),
		WithQueueSize(1))

	// Queue depth is 1; extra notifications are dropped, not blocked on.
	for i := 0; i < 10; i++ {
		c.Notify(KindVote, Task{SessionID: "s1"})
	}
	c.Notify("bogus-kind", Task{})
}
