package conference

import (
	"context"
	"log"
	"sync"

	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
)

// Snapshot is the composed view of the schedule plus this installation's
// engagement state, rebuilt on every relevant store change.
type Snapshot struct {
	Agenda     Agenda                   `json:"agenda"`
	Speakers   []models.Speaker         `json:"speakers"`
	Rooms      []models.Room            `json:"rooms"`
	Categories []models.Category        `json:"categories"`
	Speaking   []models.SessionSpeaker  `json:"sessionSpeakers"`
	Tagged     []models.SessionCategory `json:"sessionCategories"`
}

// Service composes reactive store queries into snapshots for the UI
// layer. It holds the latest snapshot in a cell; subscribers get the
// current value immediately and every rebuild after.
type Service struct {
	store *store.Store
	clock *Clock
	cell  *Cell[Snapshot]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(st *store.Store, clock *Clock) *Service {
	return &Service{
		store: st,
		clock: clock,
		cell:  NewCell[Snapshot](),
	}
}

// Start spawns the clock ticker and the rebuild loop. The loop watches
// every kind the snapshot depends on and rebuilds once per notification
// burst.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clock.Run(ctx)
	}()

	notify := s.store.Watch(ctx,
		store.KindSessions, store.KindSpeakers, store.KindRooms,
		store.KindCategories, store.KindSessionLinks,
		store.KindVotes, store.KindFavorites,
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for range notify {
			s.rebuild(ctx)
		}
	}()
}

func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.started = false
}

// Snapshot returns the latest composed view, building one on demand if
// nothing has been published yet.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap, ok := s.cell.Get(); ok {
		return snap, nil
	}
	return s.build(ctx)
}

// Watch returns a stream of snapshots, replaying the latest to new
// subscribers.
func (s *Service) Watch(ctx context.Context) <-chan Snapshot {
	return s.cell.Subscribe(ctx)
}

// Now exposes the server-corrected clock.
func (s *Service) Now() int64 {
	return s.clock.Now()
}

func (s *Service) rebuild(ctx context.Context) {
	snap, err := s.build(ctx)
	if err != nil {
		log.Printf("[ERROR] rebuilding conference snapshot: %v", err)
		return
	}
	s.cell.Set(snap)
}

func (s *Service) build(ctx context.Context) (Snapshot, error) {
	sessions, err := s.store.Sessions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	speakers, err := s.store.Speakers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	rooms, err := s.store.Rooms(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sessionSpeakers, err := s.store.SessionSpeakers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sessionCategories, err := s.store.SessionCategories(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	favoriteRows, err := s.store.Favorites(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	voteRows, err := s.store.Votes(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	favorites := make(map[string]bool, len(favoriteRows))
	for _, f := range favoriteRows {
		if f.IsFavorite {
			favorites[f.SessionID] = true
		}
	}
	votes := make(map[string]int, len(voteRows))
	for _, v := range voteRows {
		votes[v.SessionID] = v.Score
	}

	return Snapshot{
		Agenda:     BuildAgenda(sessions, favorites, votes, s.clock.Now()),
		Speakers:   speakers,
		Rooms:      rooms,
		Categories: categories,
		Speaking:   sessionSpeakers,
		Tagged:     sessionCategories,
	}, nil
}
