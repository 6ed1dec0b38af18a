package inbound

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultDedupeWindow  = 10 * time.Minute
	defaultDedupeEntries = 4096
)

// DedupeCache suppresses provider redeliveries by provider message id.
// WhatsApp retries webhook deliveries until acknowledged, so the same
// message can arrive more than once.
type DedupeCache struct {
	window     time.Duration
	maxEntries int
	Now        func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

type DedupeOptions struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

func NewDedupeCache(opts DedupeOptions) *DedupeCache {
	window := opts.Window
	if window <= 0 {
		window = defaultDedupeWindow
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultDedupeEntries
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DedupeCache{
		window:     window,
		maxEntries: maxEntries,
		Now:        now,
		entries:    map[string]time.Time{},
	}
}

// Claim records the message id and reports whether this delivery is the
// first sighting inside the window. A blank id always claims.
func (c *DedupeCache) Claim(messageID string) bool {
	if c == nil {
		return true
	}
	key := strings.TrimSpace(messageID)
	if key == "" {
		return true
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	lastSeen, exists := c.entries[key]
	c.entries[key] = now
	c.cleanup(now)
	if !exists {
		return true
	}
	return now.Sub(lastSeen) >= c.window
}

// Len reports the number of tracked message ids.
func (c *DedupeCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DedupeCache) cleanup(now time.Time) {
	if len(c.entries) <= c.maxEntries {
		for key, seenAt := range c.entries {
			if now.Sub(seenAt) > c.window*4 {
				delete(c.entries, key)
			}
		}
		return
	}
	for key, seenAt := range c.entries {
		if now.Sub(seenAt) > c.window {
			delete(c.entries, key)
		}
		if len(c.entries) <= c.maxEntries {
			break
		}
	}
}

func (c *DedupeCache) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
