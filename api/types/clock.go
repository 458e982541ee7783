package types

import (
	"sync"
	"time"
)

// ServerClock is the authoritative time source for the voting window and
// the /time endpoint. Tests and rehearsals can freeze it through the
// admin override.
type ServerClock struct {
	mu       sync.Mutex
	override *int64
}

func NewServerClock() *ServerClock {
	return &ServerClock{}
}

// Now returns the override when set, otherwise the wall clock, in epoch
// milliseconds.
func (c *ServerClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.override != nil {
		return *c.override
	}
	return time.Now().UnixMilli()
}

// SetOverride freezes the clock at the given time; nil restores the wall
// clock.
func (c *ServerClock) SetOverride(millis *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.override = millis
}
