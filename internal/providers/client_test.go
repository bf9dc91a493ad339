package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type countingBreaker struct {
	calls atomic.Int32
}

func (b *countingBreaker) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	b.calls.Add(1)
	return fn()
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "nba", r.URL.Query().Get("sport"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	breaker := &countingBreaker{}
	client := NewClient(ClientConfig{Name: "test", BaseURL: server.URL, RetryBackoff: time.Millisecond, RequestsPerSecond: 100}, breaker, quietLogger())

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.GetJSON(context.Background(), "/data", url.Values{"sport": {"nba"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int32(1), breaker.calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Name: "test", BaseURL: server.URL, RetryBackoff: time.Millisecond}, nil, quietLogger())

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/data", nil, &out)
	require.Error(t, err)

	statusErr, ok := err.(*StatusError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.False(t, statusErr.Retryable())
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Name: "test", BaseURL: server.URL, RetryBackoff: time.Millisecond, MaxAttempts: 2}, nil, quietLogger())

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/data", nil, &out)
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_RespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Name: "test", BaseURL: server.URL, RetryBackoff: time.Hour}, nil, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out map[string]interface{}
	err := client.GetJSON(ctx, "/data", nil, &out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
