package conference

import (
	"testing"
	"time"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func millis(day, hour int) int64 {
	return time.Date(2026, time.April, day, hour, 0, 0, 0, time.UTC).UnixMilli()
}

func session(id, title string, startsAt, endsAt int64) models.Session {
	return models.Session{ID: id, Title: title, StartsAt: startsAt, EndsAt: endsAt}
}

func TestBuildAgenda_Bucketing(t *testing.T) {
	now := millis(10, 12)
	sessions := []models.Session{
		session("yesterday", "Past Talk", millis(9, 10), millis(9, 11)),
		session("today", "Current Talk", millis(10, 14), millis(10, 15)),
		session("tomorrow", "Next Talk", millis(11, 10), millis(11, 11)),
		session("later", "Far Talk", millis(13, 10), millis(13, 11)),
	}

	agenda := BuildAgenda(sessions, nil, nil, now)

	require.Len(t, agenda.Passed, 1)
	assert.Equal(t, "yesterday", agenda.Passed[0].Sessions[0].ID)
	require.Len(t, agenda.Today, 1)
	assert.Equal(t, "today", agenda.Today[0].Sessions[0].ID)
	require.Len(t, agenda.Tomorrow, 1)
	assert.Equal(t, "tomorrow", agenda.Tomorrow[0].Sessions[0].ID)
	require.Len(t, agenda.Later, 1)
	assert.Equal(t, "later", agenda.Later[0].Sessions[0].ID)
}

func TestBuildAgenda_ParallelTalksShareSlot(t *testing.T) {
	now := millis(10, 8)
	sessions := []models.Session{
		session("b", "Track Two", millis(10, 10), millis(10, 11)),
		session("a", "Track One", millis(10, 10), millis(10, 11)),
		session("c", "Next Slot", millis(10, 11), millis(10, 12)),
	}

	agenda := BuildAgenda(sessions, nil, nil, now)

	require.Len(t, agenda.Today, 2)
	require.Len(t, agenda.Today[0].Sessions, 2)
	// Sessions within a slot are sorted by id.
	assert.Equal(t, "a", agenda.Today[0].Sessions[0].ID)
	assert.Equal(t, "b", agenda.Today[0].Sessions[1].ID)
	// Slots are sorted chronologically.
	assert.Equal(t, "c", agenda.Today[1].Sessions[0].ID)
}

func TestBuildAgenda_LiveAndFinished(t *testing.T) {
	now := millis(10, 12)
	sessions := []models.Session{
		session("done", "Morning Talk", millis(10, 9), millis(10, 10)),
		session("live", "Midday Talk", millis(10, 11), millis(10, 13)),
		session("soon", "Evening Talk", millis(10, 17), millis(10, 18)),
	}

	agenda := BuildAgenda(sessions, nil, nil, now)
	require.Len(t, agenda.Today, 3)

	assert.True(t, agenda.Today[0].Finished)
	assert.False(t, agenda.Today[0].Live)

	assert.True(t, agenda.Today[1].Live)
	assert.False(t, agenda.Today[1].Finished)

	assert.False(t, agenda.Today[2].Live)
	assert.False(t, agenda.Today[2].Finished)
}

func TestBuildAgenda_LiveBoundariesAreHalfOpen(t *testing.T) {
	start := millis(10, 11)
	end := millis(10, 12)
	sessions := []models.Session{session("s", "Talk", start, end)}

	atStart := BuildAgenda(sessions, nil, nil, start)
	assert.True(t, atStart.Today[0].Live)

	atEnd := BuildAgenda(sessions, nil, nil, end)
	assert.False(t, atEnd.Today[0].Live)
	assert.True(t, atEnd.Today[0].Finished)
}

func TestBuildAgenda_SlotClassification(t *testing.T) {
	now := millis(10, 8)

	lunch := models.Session{
		ID: "l", Title: "Lunch", IsServiceSession: true,
		StartsAt: millis(10, 12), EndsAt: millis(10, 13),
	}
	coffee := models.Session{
		ID: "b", Title: "Coffee Break", IsServiceSession: true,
		StartsAt: millis(10, 15), EndsAt: millis(10, 16),
	}
	party := session("p", "Closing Party", millis(10, 19), millis(10, 23))
	talk := session("t", "Regular Talk", millis(10, 10), millis(10, 11))

	agenda := BuildAgenda([]models.Session{lunch, coffee, party, talk}, nil, nil, now)
	require.Len(t, agenda.Today, 4)

	assert.Equal(t, SlotRegular, agenda.Today[0].Kind)
	assert.Equal(t, SlotLunch, agenda.Today[1].Kind)
	assert.Equal(t, SlotBreak, agenda.Today[2].Kind)
	assert.Equal(t, SlotParty, agenda.Today[3].Kind)
}

func TestBuildAgenda_MixedSlotStaysRegular(t *testing.T) {
	now := millis(10, 8)
	lunch := models.Session{
		ID: "l", Title: "Lunch", IsServiceSession: true,
		StartsAt: millis(10, 12), EndsAt: millis(10, 13),
	}
	// A talk scheduled in parallel with lunch keeps the slot regular.
	talk := session("t", "Lightning Talks", millis(10, 12), millis(10, 13))

	agenda := BuildAgenda([]models.Session{lunch, talk}, nil, nil, now)
	require.Len(t, agenda.Today, 1)
	assert.Equal(t, SlotRegular, agenda.Today[0].Kind)
}

func TestBuildAgenda_NonServiceLunchIsRegular(t *testing.T) {
	now := millis(10, 8)
	talk := session("t", "Lunch and Learn", millis(10, 12), millis(10, 13))

	agenda := BuildAgenda([]models.Session{talk}, nil, nil, now)
	require.Len(t, agenda.Today, 1)
	assert.Equal(t, SlotRegular, agenda.Today[0].Kind)
}

func TestBuildAgenda_EngagementAnnotations(t *testing.T) {
	now := millis(10, 8)
	sessions := []models.Session{
		session("a", "Talk A", millis(10, 10), millis(10, 11)),
		session("b", "Talk B", millis(10, 11), millis(10, 12)),
	}
	favorites := map[string]bool{"a": true}
	votes := map[string]int{"b": 4}

	agenda := BuildAgenda(sessions, favorites, votes, now)
	require.Len(t, agenda.Today, 2)

	a := agenda.Today[0].Sessions[0]
	assert.True(t, a.IsFavorite)
	assert.Nil(t, a.Score)

	b := agenda.Today[1].Sessions[0]
	assert.False(t, b.IsFavorite)
	require.NotNil(t, b.Score)
	assert.Equal(t, 4, *b.Score)
}

func TestBuildAgenda_Empty(t *testing.T) {
	agenda := BuildAgenda(nil, nil, nil, millis(10, 8))
	assert.Empty(t, agenda.Passed)
	assert.Empty(t, agenda.Today)
	assert.Empty(t, agenda.Tomorrow)
	assert.Empty(t, agenda.Later)
}
