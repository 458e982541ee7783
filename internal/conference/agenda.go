package conference

import (
	"sort"
	"strings"
	"time"

	"github.com/confbuddy/companion-api/internal/models"
)

// Bucket places a session relative to "now" by day of year. The
// comparison is deliberately not calendar-aware across year boundaries;
// conferences span days, not new years.
type Bucket string

const (
	BucketPassed   Bucket = "passed"
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketLater    Bucket = "later"
)

// SlotKind classifies a time slot for display. A slot gets a non-regular
// kind only when every session in it shares the characteristic.
type SlotKind string

const (
	SlotRegular SlotKind = "regular"
	SlotBreak   SlotKind = "break"
	SlotLunch   SlotKind = "lunch"
	SlotParty   SlotKind = "party"
)

// AgendaSession is a session annotated with this installation's
// engagement state.
type AgendaSession struct {
	models.Session
	IsFavorite bool `json:"isFavorite"`
	Score      *int `json:"score,omitempty"`
}

// TimeSlot groups sessions sharing an identical (startsAt, endsAt) pair;
// parallel talks render together.
type TimeSlot struct {
	StartsAt int64           `json:"startsAt"`
	EndsAt   int64           `json:"endsAt"`
	Kind     SlotKind        `json:"kind"`
	Live     bool            `json:"live"`
	Finished bool            `json:"finished"`
	Sessions []AgendaSession `json:"sessions"`
}

// Agenda is the full bucketed schedule.
type Agenda struct {
	Passed   []TimeSlot `json:"passed"`
	Today    []TimeSlot `json:"today"`
	Tomorrow []TimeSlot `json:"tomorrow"`
	Later    []TimeSlot `json:"later"`
}

// BuildAgenda buckets sessions by day of year against now (epoch millis),
// groups identical start/end pairs into slots and sorts them
// chronologically. favorites holds favorited session ids; votes maps
// session id to this installation's score.
func BuildAgenda(sessions []models.Session, favorites map[string]bool, votes map[string]int, now int64) Agenda {
	slots := make(map[[2]int64][]AgendaSession)
	for _, session := range sessions {
		entry := AgendaSession{
			Session:    session,
			IsFavorite: favorites[session.ID],
		}
		if score, ok := votes[session.ID]; ok {
			s := score
			entry.Score = &s
		}
		key := [2]int64{session.StartsAt, session.EndsAt}
		slots[key] = append(slots[key], entry)
	}

	var agenda Agenda
	for key, entries := range slots {
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
		slot := TimeSlot{
			StartsAt: key[0],
			EndsAt:   key[1],
			Kind:     classifySlot(entries),
			Live:     key[0] <= now && now < key[1],
			Finished: key[1] <= now,
			Sessions: entries,
		}
		switch bucketFor(key[0], now) {
		case BucketPassed:
			agenda.Passed = append(agenda.Passed, slot)
		case BucketToday:
			agenda.Today = append(agenda.Today, slot)
		case BucketTomorrow:
			agenda.Tomorrow = append(agenda.Tomorrow, slot)
		default:
			agenda.Later = append(agenda.Later, slot)
		}
	}

	for _, bucket := range [][]TimeSlot{agenda.Passed, agenda.Today, agenda.Tomorrow, agenda.Later} {
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].StartsAt != bucket[j].StartsAt {
				return bucket[i].StartsAt < bucket[j].StartsAt
			}
			return bucket[i].EndsAt < bucket[j].EndsAt
		})
	}
	return agenda
}

func bucketFor(startsAt, now int64) Bucket {
	startDay := time.UnixMilli(startsAt).UTC().YearDay()
	nowDay := time.UnixMilli(now).UTC().YearDay()
	switch {
	case startDay < nowDay:
		return BucketPassed
	case startDay == nowDay:
		return BucketToday
	case startDay == nowDay+1:
		return BucketTomorrow
	default:
		return BucketLater
	}
}

// classifySlot returns a non-regular kind only when all sessions in the
// slot share it. Mixed slots render as regular.
func classifySlot(entries []AgendaSession) SlotKind {
	kind := sessionKind(entries[0])
	for _, entry := range entries[1:] {
		if sessionKind(entry) != kind {
			return SlotRegular
		}
	}
	return kind
}

func sessionKind(entry AgendaSession) SlotKind {
	title := strings.ToLower(entry.Title)
	switch {
	case strings.Contains(title, "party"):
		return SlotParty
	case entry.IsServiceSession && strings.Contains(title, "lunch"):
		return SlotLunch
	case entry.IsServiceSession && strings.Contains(title, "break"):
		return SlotBreak
	default:
		return SlotRegular
	}
}
