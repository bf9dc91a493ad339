package providers

import (
	"sync"
	"time"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

// DefaultCacheTTL is how long an adapter reuses its last payload
const DefaultCacheTTL = 5 * time.Minute

// payloadCache holds one adapter's most recent payload
type payloadCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	payload  *betting.SourcePayload
	storedAt time.Time
}

func newPayloadCache(ttl time.Duration, now func() time.Time) *payloadCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &payloadCache{ttl: ttl, now: now}
}

// get returns the cached payload while it is younger than the TTL
func (c *payloadCache) get() (*betting.SourcePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.payload == nil || c.now().Sub(c.storedAt) >= c.ttl {
		return nil, false
	}
	return c.payload, true
}

func (c *payloadCache) set(p *betting.SourcePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = p
	c.storedAt = c.now()
}

func (c *payloadCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = nil
}
