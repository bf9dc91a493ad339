package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() Event {
	return Event{
		ID:        "evt-1",
		Topic:     TopicDataUpdated,
		Source:    "espn",
		Timestamp: time.Date(2024, 1, 15, 19, 30, 0, 0, time.UTC),
		Payload:   map[string]int{"records": 4},
	}
}

func expectedArgs(stream string) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: stream,
		MaxLen: 500,
		Approx: true,
		Values: []interface{}{
			"event_id", "evt-1",
			"topic", TopicDataUpdated,
			"source", "espn",
			"timestamp", "2024-01-15T19:30:00Z",
			"data", `{"records":4}`,
		},
	}
}

func TestStreamPublisher_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	publisher := NewStreamPublisher(db, StreamConfig{StreamName: "test_events", MaxLength: 500}, logger)

	mock.ExpectXAdd(expectedArgs("test_events")).SetVal("1705347000000-0")

	err := publisher.Publish(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, int64(1), publisher.Stats().Published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamPublisher_FailureCounted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	publisher := NewStreamPublisher(db, StreamConfig{StreamName: "test_events", MaxLength: 500}, logger)

	mock.ExpectXAdd(expectedArgs("test_events")).SetErr(errors.New("connection refused"))

	err := publisher.Publish(context.Background(), testEvent())
	assert.Error(t, err)
	assert.Equal(t, int64(1), publisher.Stats().Failed)
	assert.Equal(t, "closed", publisher.Stats().State)
}

func TestStreamPublisher_AttachSwallowsErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	bus := NewBus(logger)
	publisher := NewStreamPublisher(db, StreamConfig{StreamName: "test_events"}, logger)
	detach := publisher.Attach(bus)
	defer detach()

	// No expectation registered, so the XADD fails inside the handler.
	mock.MatchExpectationsInOrder(true)
	assert.NotPanics(t, func() { bus.Publish(TopicDataError, "espn", "timeout") })
	assert.Equal(t, int64(1), publisher.Stats().Failed)
}
