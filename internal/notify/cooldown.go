package notify

import (
	"sync"
	"time"
)

// Cooldown suppresses repeated alerts for the same key within a window. It
// is safe for concurrent use.
type Cooldown struct {
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// NewCooldown creates a Cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Suppress reports whether key fired within the window. When it did not, the
// key is recorded and false is returned. Expired keys are pruned on the way.
func (c *Cooldown) Suppress(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, ts := range c.seen {
		if now.Sub(ts) >= c.window {
			delete(c.seen, k)
		}
	}
	if _, ok := c.seen[key]; ok {
		return true
	}
	c.seen[key] = now
	return false
}
