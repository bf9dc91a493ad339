package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/bet-analytics/internal/events"
)

func setupHub(t *testing.T) (*Hub, *events.Bus, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	bus := events.NewBus(logger)
	unsubscribe := hub.Attach(bus)

	router := gin.New()
	router.GET("/ws", hub.HandleWebSocket)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		unsubscribe()
		server.Close()
		cancel()
	})
	return hub, bus, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	require.Equal(t, "connected", msg.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_ForwardsBusEvents(t *testing.T) {
	hub, bus, url := setupHub(t)
	conn := dial(t, url)
	assert.Equal(t, 1, hub.ClientCount())

	bus.Publish(events.TopicIntegrationSnapshot, "integration_hub", map[string]string{"snapshot_id": "snap-1"})

	msg := readMessage(t, conn)
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, events.TopicIntegrationSnapshot, msg.Topic)
	assert.Equal(t, "snap-1", msg.Data.(map[string]interface{})["snapshot_id"])
}

func TestHub_TopicFilter(t *testing.T) {
	_, bus, url := setupHub(t)
	conn := dial(t, url+"?topics="+events.TopicStrategyRecommendations)

	bus.Publish(events.TopicDataUpdated, "espn", nil)
	bus.Publish(events.TopicStrategyRecommendations, "recommendation", map[string]string{"profile": "moderate"})

	msg := readMessage(t, conn)
	assert.Equal(t, events.TopicStrategyRecommendations, msg.Topic)
}

func TestHub_ClientSubscribe(t *testing.T) {
	_, bus, url := setupHub(t)
	conn := dial(t, url+"?topics="+events.TopicDataError)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "topic": events.TopicDataUpdated}))
	ack := readMessage(t, conn)
	assert.Equal(t, "subscribed", ack.Type)

	bus.Publish(events.TopicDataUpdated, "espn", nil)
	msg := readMessage(t, conn)
	assert.Equal(t, events.TopicDataUpdated, msg.Topic)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestHub_Disconnect(t *testing.T) {
	hub, _, url := setupHub(t)
	conn := dial(t, url)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
