package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
)

type stubCounter struct {
	value int
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubCounter) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.value, s.err
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	return nil
}

func TestDashboardServiceStatsConcurrentCounts(t *testing.T) {
	users := &stubCounter{value: 10}
	courses := &stubCounter{value: 4}
	lessons := &stubCounter{value: 20}
	enrollments := &stubCounter{value: 15}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, nil, true)
	svc := NewDashboardService(users, courses, lessons, enrollments, cache, time.Minute, nil)

	stats, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 10, stats.Users)
	assert.Equal(t, 4, stats.Courses)
	assert.Equal(t, 20, stats.Lessons)
	assert.Equal(t, 15, stats.Enrollments)
}

func TestDashboardServiceStatsCacheHit(t *testing.T) {
	users := &stubCounter{value: 10}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, nil, true)
	svc := NewDashboardService(users, &stubCounter{}, &stubCounter{}, &stubCounter{}, cache, time.Minute, nil)

	_, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, users.calls)
}

func TestDashboardServiceInvalidateDropsCache(t *testing.T) {
	users := &stubCounter{value: 10}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, nil, true)
	svc := NewDashboardService(users, &stubCounter{}, &stubCounter{}, &stubCounter{}, cache, time.Minute, nil)

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())

	_, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, users.calls)
}

func TestDashboardServiceStatsWithoutCache(t *testing.T) {
	users := &stubCounter{value: 3}
	svc := NewDashboardService(users, &stubCounter{}, &stubCounter{}, &stubCounter{}, NewCacheService(nil, nil, 0, nil, false), 0, nil)

	stats, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, stats.Users)
}
