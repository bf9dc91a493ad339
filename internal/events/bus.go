package events

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Topics published inside the analytics pipeline
const (
	TopicDataUpdated             = "data.updated"
	TopicDataError               = "data.error"
	TopicIntegrationSnapshot     = "integration.snapshot"
	TopicStrategyRecommendations = "strategy.recommendations"
	TopicRegistryVersionSaved    = "registry.version_saved"

	// TopicAll subscribes a handler to every topic
	TopicAll = "*"
)

// Event is a single message delivered by the Bus
type Event struct {
	ID        string      `json:"id"`
	Topic     string      `json:"topic"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Handler receives events for a subscribed topic
type Handler func(Event)

// Publisher is the narrow interface components use to emit events
type Publisher interface {
	Publish(topic, source string, payload interface{}) Event
}

type subscription struct {
	id      uint64
	topic   string
	handler Handler
}

// Bus is an in-process publish/subscribe dispatcher. Handlers run
// synchronously on the publishing goroutine in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *logrus.Logger

	statsMu   sync.Mutex
	published map[string]int64
	panics    int64
}

// BusStats summarizes bus activity
type BusStats struct {
	Published     map[string]int64 `json:"published"`
	Subscriptions int              `json:"subscriptions"`
	HandlerPanics int64            `json:"handler_panics"`
}

// NewBus creates an empty event bus
func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		subs:      make(map[string][]subscription),
		logger:    logger,
		published: make(map[string]int64),
	}
}

// Subscribe registers h for topic (or TopicAll) and returns a func that removes it
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, topic: topic, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[topic]
			for i, s := range list {
				if s.id == id {
					b.subs[topic] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Publish builds an event and delivers it to topic and wildcard subscribers
func (b *Bus) Publish(topic, source string, payload interface{}) Event {
	event := Event{
		ID:        uuid.New().String(),
		Topic:     topic,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	b.PublishEvent(event)
	return event
}

// PublishEvent delivers a prepared event
func (b *Bus) PublishEvent(event Event) {
	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.subs[event.Topic])+len(b.subs[TopicAll]))
	handlers = append(handlers, b.subs[event.Topic]...)
	if event.Topic != TopicAll {
		handlers = append(handlers, b.subs[TopicAll]...)
	}
	b.mu.RUnlock()

	sort.Slice(handlers, func(i, j int) bool { return handlers[i].id < handlers[j].id })

	b.statsMu.Lock()
	b.published[event.Topic]++
	b.statsMu.Unlock()

	for _, s := range handlers {
		b.dispatch(s, event)
	}
}

func (b *Bus) dispatch(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.statsMu.Lock()
			b.panics++
			b.statsMu.Unlock()
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"component":    "event_bus",
					"topic":        event.Topic,
					"event_id":     event.ID,
					"subscription": s.topic,
					"panic":        fmt.Sprint(r),
				}).Error("Event handler panicked")
			}
		}
	}()
	s.handler(event)
}

// Stats returns publish counts per topic
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	count := 0
	for _, list := range b.subs {
		count += len(list)
	}
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	published := make(map[string]int64, len(b.published))
	for k, v := range b.published {
		published[k] = v
	}
	return BusStats{Published: published, Subscriptions: count, HandlerPanics: b.panics}
}
