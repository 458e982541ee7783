package conference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_SyncComputesOffset(t *testing.T) {
	// The server runs an hour ahead of the device.
	const skew = int64(3600_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"time": time.Now().UnixMilli() + skew})
	}))
	defer server.Close()

	client := remote.NewClient(remote.Config{BaseURL: server.URL, Timeout: time.Second, MaxAttempts: 1})
	clock := NewClock(client, time.Minute)

	_, synced := clock.Offset()
	assert.False(t, synced)

	require.NoError(t, clock.Sync(context.Background()))

	offset, synced := clock.Offset()
	assert.True(t, synced)
	// Allow some slack for the round trip.
	assert.InDelta(t, skew, offset, 5000)
	assert.InDelta(t, time.Now().UnixMilli()+skew, clock.Now(), 5000)
}

func TestClock_FailedSyncKeepsOffset(t *testing.T) {
	var fail bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]int64{"time": time.Now().UnixMilli() + 60_000})
	}))
	defer server.Close()

	client := remote.NewClient(remote.Config{BaseURL: server.URL, Timeout: time.Second, MaxAttempts: 1})
	clock := NewClock(client, time.Minute)
	require.NoError(t, clock.Sync(context.Background()))
	offset, _ := clock.Offset()

	fail = true
	require.Error(t, clock.Sync(context.Background()))

	kept, synced := clock.Offset()
	assert.True(t, synced)
	assert.Equal(t, offset, kept)
}

func TestClock_NowBeforeFirstSyncIsLocal(t *testing.T) {
	client := remote.NewClient(remote.Config{BaseURL: "http://localhost:0", Timeout: time.Second})
	clock := NewClock(client, time.Minute)
	assert.InDelta(t, time.Now().UnixMilli(), clock.Now(), 1000)
}
