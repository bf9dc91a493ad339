package providers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jstittsworth/bet-analytics/internal/betting"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPayloadCache_ExpiresAfterFiveMinutes(t *testing.T) {
	clock := newFakeClock()
	cache := newPayloadCache(0, clock.Now)

	_, ok := cache.get()
	assert.False(t, ok)

	cache.set(&betting.SourcePayload{Source: "espn"})

	clock.Advance(4*time.Minute + 59*time.Second)
	cached, ok := cache.get()
	assert.True(t, ok)
	assert.Equal(t, "espn", cached.Source)

	clock.Advance(time.Second)
	_, ok = cache.get()
	assert.False(t, ok)
}

func TestPayloadCache_Invalidate(t *testing.T) {
	clock := newFakeClock()
	cache := newPayloadCache(time.Minute, clock.Now)

	cache.set(&betting.SourcePayload{Source: "theodds"})
	cache.invalidate()

	_, ok := cache.get()
	assert.False(t, ok)
}
