package conference

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/confbuddy/companion-api/internal/remote"
)

// Clock tracks the offset between server time and the local clock. The
// voting window is enforced against server-side start times, so a skewed
// device clock must not mislead the UI about whether a window is open.
// The server remains the final authority either way.
type Clock struct {
	client   *remote.Client
	interval time.Duration

	mu     sync.Mutex
	offset int64
	synced bool
}

func NewClock(client *remote.Client, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Clock{client: client, interval: interval}
}

// Now returns the current time in epoch milliseconds, corrected by the
// last known server offset. Before the first successful fetch this is
// just the local clock.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().UnixMilli() + c.offset
}

// Offset returns the current correction and whether it came from a
// successful server fetch.
func (c *Clock) Offset() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.synced
}

// Sync fetches server time once and recomputes the offset.
func (c *Clock) Sync(ctx context.Context) error {
	local := time.Now().UnixMilli()
	serverTime, err := c.client.ServerTime(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.offset = serverTime - local
	c.synced = true
	c.mu.Unlock()
	log.Printf("[DEBUG] server clock offset %dms", serverTime-local)
	return nil
}

// Run re-syncs the offset periodically until ctx is cancelled. Failures
// keep the previous offset.
func (c *Clock) Run(ctx context.Context) {
	if err := c.Sync(ctx); err != nil {
		log.Printf("[DEBUG] initial server time fetch failed: %v", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				log.Printf("[DEBUG] server time fetch failed: %v", err)
			}
		}
	}
}
