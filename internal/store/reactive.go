package store

import (
	"context"
	"log"
	"sync"

	"github.com/confbuddy/companion-api/internal/models"
)

// Kind names a group of rows whose changes are announced together.
type Kind string

const (
	KindSessions     Kind = "sessions"
	KindSpeakers     Kind = "speakers"
	KindRooms        Kind = "rooms"
	KindCategories   Kind = "categories"
	KindSessionLinks Kind = "session-links"
	KindVotes        Kind = "votes"
	KindFavorites    Kind = "favorites"
	KindFeedback     Kind = "feedback"
	KindPodcasts     Kind = "podcasts"
	KindPlayback     Kind = "playback"
)

// Hub fans committed-write notifications out to subscribers. Sends never
// block: a subscriber that is behind keeps a pending notification in its
// buffer and re-queries once, which covers any number of missed changes.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch    chan Kind
	kinds map[Kind]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Publish announces that rows of the given kind changed.
func (h *Hub) Publish(kind Kind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		if _, ok := sub.kinds[kind]; !ok {
			continue
		}
		select {
		case sub.ch <- kind:
		default:
		}
	}
}

// Subscribe returns a channel that receives a notification whenever rows
// of any requested kind change. The channel is pre-seeded so a new
// subscriber immediately runs its first query (replay-latest semantics).
// The channel is closed when ctx is done or the hub shuts down.
func (h *Hub) Subscribe(ctx context.Context, kinds ...Kind) <-chan Kind {
	sub := &subscriber{
		ch:    make(chan Kind, len(kinds)+4),
		kinds: make(map[Kind]struct{}, len(kinds)),
	}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
		sub.ch <- k
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub.ch)
		}
		h.mu.Unlock()
	}()

	return sub.ch
}

// Close detaches and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = nil
}

// Watch exposes raw change notifications for the given kinds.
func (s *Store) Watch(ctx context.Context, kinds ...Kind) <-chan Kind {
	return s.hub.Subscribe(ctx, kinds...)
}

// WatchSessions emits the full session list whenever sessions change,
// starting with the current contents. Slow receivers only ever see the
// latest list.
func (s *Store) WatchSessions(ctx context.Context) <-chan []models.Session {
	out := make(chan []models.Session, 1)
	notify := s.hub.Subscribe(ctx, KindSessions)
	go func() {
		defer close(out)
		for range notify {
			sessions, err := s.Sessions(ctx)
			if err != nil {
				log.Printf("[ERROR] watch sessions: %v", err)
				continue
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- sessions:
			default:
			}
		}
	}()
	return out
}

// WatchFavorites emits the favorited session-id set on every change.
func (s *Store) WatchFavorites(ctx context.Context) <-chan map[string]bool {
	out := make(chan map[string]bool, 1)
	notify := s.hub.Subscribe(ctx, KindFavorites)
	go func() {
		defer close(out)
		for range notify {
			favs, err := s.Favorites(ctx)
			if err != nil {
				log.Printf("[ERROR] watch favorites: %v", err)
				continue
			}
			set := make(map[string]bool, len(favs))
			for _, f := range favs {
				if f.IsFavorite {
					set[f.SessionID] = true
				}
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- set:
			default:
			}
		}
	}()
	return out
}
