package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// StreamConfig contains settings for mirroring bus events to Redis
type StreamConfig struct {
	StreamName     string
	MaxLength      int64
	PublishTimeout time.Duration
	BreakerTimeout time.Duration
	FailureRatio   float64
}

// StreamStats tracks publishing results
type StreamStats struct {
	Published int64  `json:"published"`
	Failed    int64  `json:"failed"`
	State     string `json:"breaker_state"`
}

// StreamPublisher mirrors bus events onto a capped Redis stream
type StreamPublisher struct {
	client  redis.Cmdable
	breaker *gobreaker.CircuitBreaker
	config  StreamConfig
	logger  *logrus.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// NewStreamPublisher creates a stream publisher guarded by a circuit breaker
func NewStreamPublisher(client redis.Cmdable, config StreamConfig, logger *logrus.Logger) *StreamPublisher {
	if config.StreamName == "" {
		config.StreamName = "analytics_events"
	}
	if config.MaxLength == 0 {
		config.MaxLength = 10000
	}
	if config.PublishTimeout == 0 {
		config.PublishTimeout = 2 * time.Second
	}
	if config.BreakerTimeout == 0 {
		config.BreakerTimeout = 30 * time.Second
	}
	if config.FailureRatio == 0 {
		config.FailureRatio = 0.6
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "event-stream",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component":  "event_stream",
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Event stream circuit breaker state changed")
		},
	})

	return &StreamPublisher{
		client:  client,
		breaker: cb,
		config:  config,
		logger:  logger,
	}
}

// Attach subscribes the publisher to every bus topic
func (p *StreamPublisher) Attach(bus *Bus) func() {
	return bus.Subscribe(TopicAll, func(event Event) {
		ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
		defer cancel()
		if err := p.Publish(ctx, event); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"component": "event_stream",
				"topic":     event.Topic,
				"event_id":  event.ID,
			}).Warn("Failed to mirror event to stream")
		}
	})
}

// Publish appends one event to the stream
func (p *StreamPublisher) Publish(ctx context.Context, event Event) error {
	values, err := serializeEvent(event)
	if err != nil {
		p.failed.Add(1)
		return err
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.config.StreamName,
			MaxLen: p.config.MaxLength,
			Approx: true,
			Values: values,
		}).Result()
	})
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to add event to stream %s: %w", p.config.StreamName, err)
	}

	p.published.Add(1)
	return nil
}

// Stats returns publish counters and breaker state
func (p *StreamPublisher) Stats() StreamStats {
	return StreamStats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		State:     p.breaker.State().String(),
	}
}

// serializeEvent flattens an event into ordered stream fields
func serializeEvent(event Event) ([]interface{}, error) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling event payload: %w", err)
	}
	return []interface{}{
		"event_id", event.ID,
		"topic", event.Topic,
		"source", event.Source,
		"timestamp", event.Timestamp.Format(time.RFC3339Nano),
		"data", string(data),
	}, nil
}
