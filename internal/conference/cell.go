package conference

import (
	"context"
	"sync"
)

// Cell holds the latest value of type T and pushes updates to any number
// of subscribers. New subscribers immediately receive the current value,
// and a slow subscriber only ever sees the most recent one; intermediate
// values are coalesced away.
type Cell[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	subs  map[chan T]struct{}
}

func NewCell[T any]() *Cell[T] {
	return &Cell[T]{subs: make(map[chan T]struct{})}
}

// Set replaces the current value and notifies subscribers.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.set = true
	for ch := range c.subs {
		// Replace any undelivered value with the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- value:
		default:
		}
	}
}

// Get returns the current value and whether one has been set.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Subscribe returns a channel carrying the current value (if set) and
// every subsequent update, until ctx is done.
func (c *Cell[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	c.mu.Lock()
	if c.set {
		ch <- c.value
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}()

	return ch
}
