package remote

import (
	"io"
	"log"
	"sync"
	"time"
)

// CacheConfig holds options for NewCache.
type CacheConfig struct {
	Scaling Scaling

	// PollTimeout bounds how long PollAndUpdate waits for a message.
	// Zero means a pure non-blocking check.
	PollTimeout time.Duration

	// Logger receives warnings about malformed messages. Nil discards them.
	Logger *log.Logger
}

// CacheStats counts what the cache has seen.
type CacheStats struct {
	Polls     int64 `json:"polls"`
	Messages  int64 `json:"messages"`
	Malformed int64 `json:"malformed"`
	Updates   int64 `json:"updates"`
}

type slot struct {
	estimate  Estimate
	populated bool
	updatedAt time.Time
}

// Cache holds the last ellipse received for each entity. Remote estimates
// usually arrive slower than frames, so a read between messages returns the
// previous value instead of nothing.
type Cache struct {
	channel     Channel
	scaling     Scaling
	pollTimeout time.Duration
	logger      *log.Logger

	mu    sync.RWMutex
	slots map[int]slot
	stats CacheStats
}

// NewCache creates a Cache reading from ch. Every slot starts at the zero estimate.
func NewCache(ch Channel, config CacheConfig) *Cache {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{
		channel:     ch,
		scaling:     config.Scaling,
		pollTimeout: config.PollTimeout,
		logger:      logger,
		slots:       make(map[int]slot),
	}
}

// PollAndUpdate checks the channel once and applies at most one message.
// It reports whether any slot changed. With no message pending the cache is untouched.
func (c *Cache) PollAndUpdate() bool {
	c.mu.Lock()
	c.stats.Polls++
	c.mu.Unlock()

	if c.channel == nil {
		return false
	}

	data, ok := c.channel.Poll(c.pollTimeout)
	if !ok {
		return false
	}

	return c.Apply(data) > 0
}

// Apply decodes one message and stores every well-formed slot it carries,
// scaled to display resolution. Slots absent from the message keep their
// previous value. It returns the number of slots written.
func (c *Cache) Apply(data []byte) int {
	updates, slotErrs, err := DecodeMessage(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Messages++
	if err != nil {
		c.stats.Malformed++
		c.logger.Printf("Ignoring remote message: %v", err)
		return 0
	}
	if len(slotErrs) > 0 {
		c.stats.Malformed++
		for _, e := range slotErrs {
			c.logger.Printf("Ignoring remote slot: %v", e)
		}
	}

	now := time.Now()
	for _, u := range updates {
		c.slots[u.EntityID] = slot{
			estimate:  c.scaling.Apply(u.Estimate),
			populated: true,
			updatedAt: now,
		}
	}
	c.stats.Updates += int64(len(updates))

	return len(updates)
}

// Fetch returns the cached estimate for id, or the zero estimate if none has arrived.
func (c *Cache) Fetch(id int) Estimate {
	e, _ := c.Lookup(id)
	return e
}

// Lookup is Fetch plus whether id has ever been populated.
func (c *Cache) Lookup(id int) (Estimate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[id]
	if !ok {
		return Estimate{}, false
	}
	return s.estimate, s.populated
}

// Age returns how long ago id was last written, and false if it never was.
func (c *Cache) Age(id int) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[id]
	if !ok || !s.populated {
		return 0, false
	}
	return time.Since(s.updatedAt), true
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
