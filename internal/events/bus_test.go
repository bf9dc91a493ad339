package events

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewBus(logger)
}

func TestBus_PublishDeliversToTopicAndWildcard(t *testing.T) {
	bus := newTestBus()

	var got []string
	bus.Subscribe(TopicDataUpdated, func(e Event) { got = append(got, "topic:"+e.Source) })
	bus.Subscribe(TopicAll, func(e Event) { got = append(got, "all:"+e.Topic) })
	bus.Subscribe(TopicDataError, func(e Event) { got = append(got, "other") })

	event := bus.Publish(TopicDataUpdated, "espn", map[string]int{"records": 3})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, []string{"topic:espn", "all:data.updated"}, got)
	assert.Equal(t, int64(1), bus.Stats().Published[TopicDataUpdated])
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	calls := 0
	unsubscribe := bus.Subscribe(TopicIntegrationSnapshot, func(Event) { calls++ })

	bus.Publish(TopicIntegrationSnapshot, "hub", nil)
	unsubscribe()
	unsubscribe()
	bus.Publish(TopicIntegrationSnapshot, "hub", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Stats().Subscriptions)
}

func TestBus_HandlerPanicIsIsolated(t *testing.T) {
	bus := newTestBus()

	delivered := false
	bus.Subscribe(TopicDataError, func(Event) { panic("boom") })
	bus.Subscribe(TopicDataError, func(Event) { delivered = true })

	require.NotPanics(t, func() { bus.Publish(TopicDataError, "sportsradar", "timeout") })
	assert.True(t, delivered)
	assert.Equal(t, int64(1), bus.Stats().HandlerPanics)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(TopicAll, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(TopicDataUpdated, "theodds", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, count)
}
