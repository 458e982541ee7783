package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/confbuddy/companion-api/internal/remote"
	"github.com/confbuddy/companion-api/internal/store"
)

// Coordinator reconciles pending local work with the backend and pulls
// server deltas into the local store. Each kind gets its own FIFO queue
// and worker so a slow kind never blocks the others.
type Coordinator struct {
	store     *store.Store
	client    *remote.Client
	interval  time.Duration
	queueSize int
	queues    map[Kind]chan Task
	now       func() int64

	onUnauthorized func()

	mu          sync.Mutex
	started     bool
	lastDelta   int64
	lastCatalog int64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type Option func(*Coordinator)

// WithInterval sets the periodic sweep interval.
func WithInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithQueueSize sets the per-kind queue depth.
func WithQueueSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnUnauthorized installs the hook fired when the backend stops
// accepting this installation's identity; the caller owns the
// re-consent flow.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Coordinator) {
		c.onUnauthorized = fn
	}
}

// WithNowFunc overrides the clock, for tests and for server-offset time.
func WithNowFunc(now func() int64) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func New(st *store.Store, client *remote.Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     st,
		client:    client,
		interval:  30 * time.Second,
		queueSize: 64,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queues = make(map[Kind]chan Task, len(allKinds))
	for _, kind := range allKinds {
		c.queues[kind] = make(chan Task, c.queueSize)
	}
	return c
}

// Start spawns one worker per kind, the periodic sweep, and the store
// watch driving immediate push attempts, all under a single supervisory
// context.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("sync coordinator already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for kind, queue := range c.queues {
		c.wg.Add(1)
		go c.runWorker(ctx, kind, queue)
	}

	c.wg.Add(1)
	go c.runSweep(ctx)

	// Immediate path: a committed local write queues its pending rows
	// right away. The periodic sweep stays the backstop for anything
	// this misses (full queues, crashes between write and enqueue).
	notify := c.store.Watch(ctx,
		store.KindVotes, store.KindFavorites, store.KindFeedback,
		store.KindSessions, store.KindRooms, store.KindSessionLinks)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for kind := range notify {
			c.enqueueChanged(ctx, kind)
		}
	}()

	c.started = true
	log.Printf("[INFO] Sync coordinator started (%d kinds, sweep every %s)", len(c.queues), c.interval)
	return nil
}

// Close cancels the supervisory scope and waits for workers to exit.
// In-flight rows stay pending and are re-swept on next startup.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.started = false
	log.Printf("[INFO] Sync coordinator stopped")
}

// Notify enqueues an immediate sync attempt for one item. Never blocks:
// a full queue just defers the item to the periodic sweep.
func (c *Coordinator) Notify(kind Kind, task Task) {
	queue, ok := c.queues[kind]
	if !ok {
		log.Printf("[ERROR] Notify for unknown sync kind %q", kind)
		return
	}
	select {
	case queue <- task:
	default:
		log.Printf("[DEBUG] %s queue full, leaving item for periodic sweep", kind)
	}
}

// runWorker drains one kind's queue in FIFO order. Per-item errors are
// contained so a failing item never stops the loop, and failures in one
// kind never affect another kind's worker.
func (c *Coordinator) runWorker(ctx context.Context, kind Kind, queue <-chan Task) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-queue:
			c.processTask(ctx, kind, task)
		}
	}
}

func (c *Coordinator) processTask(ctx context.Context, kind Kind, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Panic in %s sync worker: %v", kind, r)
		}
	}()

	err := c.push(ctx, kind, task)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrComeBackLater):
		// Window not open yet. The row stays pending; the next sweep
		// re-queues it.
		log.Printf("[DEBUG] %s sync for %s deferred: window not open", kind, task.SessionID)
	case errors.Is(err, remote.ErrUnauthorized):
		log.Printf("[ERROR] %s sync unauthorized, identity needs re-consent", kind)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case remote.IsTransient(err):
		log.Printf("[DEBUG] %s sync transient failure, will retry: %v", kind, err)
	default:
		log.Printf("[ERROR] %s sync failed: %v", kind, err)
	}
}

func (c *Coordinator) push(ctx context.Context, kind Kind, task Task) error {
	switch kind {
	case KindVote:
		return c.pushVote(ctx, task)
	case KindFavorite:
		return c.pushFavorite(ctx, task)
	case KindFeedback:
		return c.pushFeedback(ctx, task)
	case KindSession:
		return c.pushSession(ctx, task)
	case KindRoom:
		return c.pushRoom(ctx, task)
	case KindSessionSpeaker:
		return c.pushSessionSpeaker(ctx, task)
	case KindSessionCategory:
		return c.pushSessionCategory(ctx, task)
	case KindPodcast:
		return c.pullPodcasts(ctx)
	default:
		return fmt.Errorf("unknown sync kind %q", kind)
	}
}

// runSweep periodically re-queues every pending row and pulls server
// deltas. One immediate sweep runs at startup so a restart picks up
// whatever the last run left behind.
func (c *Coordinator) runSweep(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Coordinator) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Panic in sync sweep: %v", r)
		}
	}()

	c.enqueuePending(ctx)
	c.Notify(KindPodcast, Task{})

	if err := c.PullDeltas(ctx); err != nil {
		log.Printf("[DEBUG] delta pull failed, will retry next sweep: %v", err)
	}
}

// enqueuePending scans the store for rows still awaiting sync. Rejected
// rows are skipped: they would fail identically forever and stay visible
// until the user edits or removes them.
func (c *Coordinator) enqueuePending(ctx context.Context) {
	c.enqueuePendingVotes(ctx)
	c.enqueuePendingFavorites(ctx)
	c.enqueuePendingFeedback(ctx)
	c.enqueuePendingSessions(ctx)
	c.enqueuePendingRooms(ctx)
	c.enqueuePendingLinks(ctx)
}

// enqueueChanged maps a store change notification to the pending scan
// for that kind, so one local write triggers one immediate push attempt.
func (c *Coordinator) enqueueChanged(ctx context.Context, kind store.Kind) {
	switch kind {
	case store.KindVotes:
		c.enqueuePendingVotes(ctx)
	case store.KindFavorites:
		c.enqueuePendingFavorites(ctx)
	case store.KindFeedback:
		c.enqueuePendingFeedback(ctx)
	case store.KindSessions:
		c.enqueuePendingSessions(ctx)
	case store.KindRooms:
		c.enqueuePendingRooms(ctx)
	case store.KindSessionLinks:
		c.enqueuePendingLinks(ctx)
	}
}

func (c *Coordinator) enqueuePendingVotes(ctx context.Context) {
	votes, err := c.store.PendingVotes(ctx)
	if err != nil {
		log.Printf("[ERROR] scanning pending votes: %v", err)
		return
	}
	for _, v := range votes {
		c.Notify(KindVote, Task{SessionID: v.SessionID})
	}
}

func (c *Coordinator) enqueuePendingFavorites(ctx context.Context) {
	favorites, err := c.store.PendingFavorites(ctx)
	if err != nil {
		log.Printf("[ERROR] scanning pending favorites: %v", err)
		return
	}
	for _, f := range favorites {
		c.Notify(KindFavorite, Task{SessionID: f.SessionID})
	}
}

func (c *Coordinator) enqueuePendingFeedback(ctx context.Context) {
	feedbacks, err := c.store.PendingFeedbacks(ctx)
	if err != nil {
		log.Printf("[ERROR] scanning pending feedback: %v", err)
		return
	}
	for _, f := range feedbacks {
		c.Notify(KindFeedback, Task{SessionID: f.SessionID})
	}
}

func (c *Coordinator) enqueuePendingSessions(ctx context.Context) {
	sessions, err := c.store.PendingSessions(ctx)
	if err != nil {
		log.Printf("[ERROR] scanning pending sessions: %v", err)
		return
	}
	for _, s := range sessions {
		c.Notify(KindSession, Task{SessionID: s.ID})
	}
}

func (c *Coordinator) enqueuePendingRooms(ctx context.Context) {
	rooms, err := c.store.PendingRooms(ctx)
	if err != nil {
		log.Printf("[ERROR] scanning pending rooms: %v", err)
		return
	}
	for _, r := range rooms {
		c.Notify(KindRoom, Task{RoomID: r.ID})
	}
}

func (c *Coordinator) enqueuePendingLinks(ctx context.Context) {
	if links, err := c.store.PendingSessionSpeakers(ctx); err != nil {
		log.Printf("[ERROR] scanning pending session speakers: %v", err)
	} else {
		for _, l := range links {
			c.Notify(KindSessionSpeaker, Task{SessionID: l.SessionID, SpeakerID: l.SpeakerID})
		}
	}

	if links, err := c.store.PendingSessionCategories(ctx); err != nil {
		log.Printf("[ERROR] scanning pending session categories: %v", err)
	} else {
		for _, l := range links {
			c.Notify(KindSessionCategory, Task{SessionID: l.SessionID, CategoryID: l.CategoryID})
		}
	}
}
