package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCacheService for testing
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func TestCacheService_SetGet(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	cache := NewCacheService(client)
	ctx := context.Background()

	rmock.ExpectSet("recommendations:moderate", []byte(`{"total":12.5}`), time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, RecommendationsCacheKey("moderate"), map[string]float64{"total": 12.5}, time.Minute))

	rmock.ExpectGet("recommendations:moderate").SetVal(`{"total":12.5}`)
	var got map[string]float64
	require.NoError(t, cache.Get(ctx, "recommendations:moderate", &got))
	assert.Equal(t, 12.5, got["total"])

	rmock.ExpectGet("analysis:snap-1").RedisNil()
	assert.ErrorIs(t, cache.Get(ctx, AnalysisCacheKey("snap-1"), &got), ErrCacheMiss)

	rmock.ExpectDel("a", "b").SetVal(2)
	require.NoError(t, cache.Delete(ctx, "a", "b"))

	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCacheService_SetWithRetry(t *testing.T) {
	client, rmock := redismock.NewClientMock()
	cache := NewCacheService(client)

	rmock.ExpectSet("k", []byte(`1`), time.Minute).SetErr(errors.New("connection reset"))
	rmock.ExpectSet("k", []byte(`1`), time.Minute).SetVal("OK")

	require.NoError(t, cache.SetWithRetry(context.Background(), "k", 1, time.Minute, 3))
	assert.NoError(t, rmock.ExpectationsWereMet())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rmock.ExpectSet("k", []byte(`1`), time.Minute).SetErr(errors.New("connection reset"))
	assert.ErrorIs(t, cache.SetWithRetry(ctx, "k", 1, time.Minute, 3), context.Canceled)
}
