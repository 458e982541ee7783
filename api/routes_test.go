package api

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/confbuddy/companion-api/api/schedule"
	"github.com/confbuddy/companion-api/api/types"
	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *store.Store, *types.Dependencies) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	st := store.New(&database.DB{DB: db})
	require.NoError(t, st.Migrate())
	t.Cleanup(st.Close)

	deps := &types.Dependencies{
		Store:       st,
		Clock:       types.NewServerClock(),
		AdminSecret: "test-secret",
	}

	engine := gin.New()
	cleanupStop := make(chan struct{})
	t.Cleanup(func() { close(cleanupStop) })
	require.NoError(t, RegisterRoutes(engine, deps, &sync.Map{}, cleanupStop, &sync.Once{}))
	return engine, st, deps
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func signInstallation(t *testing.T, engine *gin.Engine, id string) {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/sign", "", gin.H{"installationId": id})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSign(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/sign", "", gin.H{"installationId": "device-1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/sign", "", gin.H{"installationId": "device-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/sign", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVote_RequiresBearerToken(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/vote", "", gin.H{"sessionId": "s1", "score": 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVote_UnknownInstallation(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/vote", "never-signed", gin.H{"sessionId": "s1", "score": 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVote_WindowAndRecording(t *testing.T) {
	engine, st, deps := setupTestRouter(t)
	signInstallation(t, engine, "device-1")

	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "Talk", StartsAt: 1000, EndsAt: 2000}))

	// Before the session starts the window is closed.
	before := int64(500)
	deps.Clock.SetOverride(&before)
	w := doJSON(t, engine, http.MethodPost, "/vote", "device-1", gin.H{"sessionId": "s1", "score": 4})
	assert.Equal(t, 477, w.Code)

	// At the start time it opens.
	open := int64(1000)
	deps.Clock.SetOverride(&open)
	w = doJSON(t, engine, http.MethodPost, "/vote", "device-1", gin.H{"sessionId": "s1", "score": 4})
	assert.Equal(t, http.StatusOK, w.Code)

	votes, err := st.VotesForInstallation(context.Background(), "device-1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 4, votes[0].Score)

	// The GET mirror returns it.
	w = doJSON(t, engine, http.MethodGet, "/vote", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out []gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 1)
}

func TestVote_UnknownSession(t *testing.T) {
	engine, _, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")

	w := doJSON(t, engine, http.MethodPost, "/vote", "device-1", gin.H{"sessionId": "missing", "score": 4})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVote_ScoreOutOfRange(t *testing.T) {
	engine, st, deps := setupTestRouter(t)
	signInstallation(t, engine, "device-1")
	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "Talk", StartsAt: 0}))
	now := int64(1000)
	deps.Clock.SetOverride(&now)

	w := doJSON(t, engine, http.MethodPost, "/vote", "device-1", gin.H{"sessionId": "s1", "score": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedback_UnknownInstallationIsForbidden(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/feedback", "never-signed", gin.H{"sessionId": "s1", "value": "nice"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFavorite_Recorded(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")
	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "Talk"}))

	w := doJSON(t, engine, http.MethodPost, "/favorite", "device-1", gin.H{"sessionId": "s1", "isFavorite": true})
	require.Equal(t, http.StatusOK, w.Code)

	favorites, err := st.FavoritesForInstallation(context.Background(), "device-1")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.True(t, favorites[0].IsFavorite)
}

func TestSendSession_AssignsCanonicalID(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")

	w := doJSON(t, engine, http.MethodPost, "/send/sessions", "device-1", gin.H{
		"id":    "local-abc",
		"title": "My Talk",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp schedule.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.AssignedID)
	assert.False(t, store.IsLocalSessionID(resp.AssignedID))

	stored, err := st.SessionByID(context.Background(), resp.AssignedID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateSynced, stored.SyncState)
}

func TestSendSession_DuplicateTitleRejected(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")
	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "My Talk"}))

	w := doJSON(t, engine, http.MethodPost, "/send/sessions", "device-1", gin.H{
		"id":    "local-abc",
		"title": "my talk",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp schedule.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestSendRoom_AssignsNextID(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")
	require.NoError(t, st.UpsertRoom(context.Background(), &models.Room{ID: 4, Name: "Main Hall"}))

	w := doJSON(t, engine, http.MethodPost, "/send/rooms", "device-1", gin.H{
		"id":   -1,
		"name": "Workshop A",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp schedule.SendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "5", resp.AssignedID)
}

func TestConferenceSnapshotIsPublic(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "Keynote"}))
	require.NoError(t, st.UpsertSpeaker(context.Background(), &models.Speaker{ID: "sp1", FirstName: "Ada"}))

	w := doJSON(t, engine, http.MethodGet, "/conference", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot struct {
		Sessions []models.Session `json:"sessions"`
		Speakers []models.Speaker `json:"speakers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Len(t, snapshot.Sessions, 1)
	assert.Len(t, snapshot.Speakers, 1)
}

func TestSyncSessions_RequiresIdentityAndFiltersBySince(t *testing.T) {
	engine, st, _ := setupTestRouter(t)
	require.NoError(t, st.UpsertSession(context.Background(), &models.Session{ID: "s1", Title: "Keynote"}))

	w := doJSON(t, engine, http.MethodGet, "/sync/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/sync/sessions?since=0", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sessions []models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)

	// Nothing changed after the far future.
	w = doJSON(t, engine, http.MethodGet, "/sync/sessions?since=9999999999999999", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	assert.Empty(t, sessions)
}

func TestServerTimeOverride(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	// Override needs the admin secret.
	w := doJSON(t, engine, http.MethodPost, "/time/42000", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, engine, http.MethodPost, "/time/42000", "wrong-secret", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/time/42000", "test-secret", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/time", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Time int64 `json:"time"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int64(42000), out.Time)

	// "null" clears the override.
	w = doJSON(t, engine, http.MethodPost, "/time/null", "test-secret", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, engine, http.MethodGet, "/time", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Greater(t, out.Time, int64(42000))
}

func TestPodcastCatalogRoundTrip(t *testing.T) {
	engine, _, _ := setupTestRouter(t)
	signInstallation(t, engine, "device-1")

	w := doJSON(t, engine, http.MethodPost, "/podcast/import", "", gin.H{
		"channel": gin.H{"id": 1, "title": "Go Time"},
		"categories": []string{"tech"},
		"episodes": []gin.H{
			{"episode": gin.H{"id": "e1", "guid": "g1", "title": "One"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/podcast/all", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var catalog []store.ChannelWithEpisodes
	require.NoError(t, gob.NewDecoder(w.Body).Decode(&catalog))
	require.Len(t, catalog, 1)
	assert.Equal(t, "Go Time", catalog[0].Channel.Title)
	assert.Equal(t, []string{"tech"}, catalog[0].Categories)
	require.Len(t, catalog[0].Episodes, 1)
}

func TestPodcastRequest(t *testing.T) {
	engine, _, _ := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/podcast/sendRequest", "never-signed", gin.H{
		"title": "Go Time", "rssLink": "https://example.com/feed.xml",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	signInstallation(t, engine, "device-1")
	w = doJSON(t, engine, http.MethodPost, "/podcast/sendRequest", "device-1", gin.H{
		"title": "Go Time", "rssLink": "https://example.com/feed.xml",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNotFound(t *testing.T) {
	engine, _, _ := setupTestRouter(t)
	w := doJSON(t, engine, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
