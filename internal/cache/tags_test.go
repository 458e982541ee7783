package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags_GetSetDelete(t *testing.T) {
	tags := NewTags(time.Minute)

	_, ok := tags.Get("1")
	assert.False(t, ok)

	tags.Set("1", []string{"tech", "golang"})
	names, ok := tags.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"tech", "golang"}, names)

	tags.Delete("1")
	_, ok = tags.Get("1")
	assert.False(t, ok)
}

func TestTags_CopiesAreIsolated(t *testing.T) {
	tags := NewTags(time.Minute)
	original := []string{"tech"}
	tags.Set("1", original)

	// Mutating either side must not leak into the cache.
	original[0] = "changed"
	names, ok := tags.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"tech"}, names)

	names[0] = "also changed"
	again, ok := tags.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"tech"}, again)
}

func TestTags_Expiry(t *testing.T) {
	tags := NewTags(time.Millisecond)
	tags.Set("1", []string{"tech"})

	time.Sleep(5 * time.Millisecond)
	_, ok := tags.Get("1")
	assert.False(t, ok)
}

func TestTags_ClearAndStats(t *testing.T) {
	tags := NewTags(time.Minute)
	tags.Set("1", []string{"a"})
	tags.Set("2", []string{"b"})
	tags.Get("1")
	tags.Get("missing")

	stats := tags.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
	assert.Equal(t, 2, stats.Entries)

	tags.Clear()
	assert.Zero(t, tags.Stats().Entries)
}
