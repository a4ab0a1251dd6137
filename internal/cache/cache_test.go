// internal/cache/cache_test.go
package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		DefaultTTL:       24 * 60,
		TimeSensitiveTTL: 15,
		PerIntentTTL:     map[string]int{"news": 30},
	}
}

func testItems() []models.ScoredItem {
	return []models.ScoredItem{
		{RawItem: models.RawItem{Source: "github", ID: "1", Title: "gin", URL: "https://github.com/gin-gonic/gin"}, Relevance: 88, Rank: 1},
	}
}

// ==========================================
// Key building
// ==========================================

func TestKey_Deterministic(t *testing.T) {
	a := Key("Rust Tutorials", []string{"github", "devto"}, map[string]interface{}{"language": "rust"})
	b := Key("rust   tutorials", []string{"devto", "github"}, map[string]interface{}{"language": "rust"})

	assert.Equal(t, a, b)
}

func TestKey_DifferentInputsDiffer(t *testing.T) {
	a := Key("rust tutorials", []string{"github"}, nil)
	b := Key("rust tutorials", []string{"devto"}, nil)
	c := Key("go tutorials", []string{"github"}, nil)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

// ==========================================
// TTL policy
// ==========================================

func TestTTLFor(t *testing.T) {
	c := New(NewMemoryStore(), testCacheConfig(), logger.NewNoOpLogger())

	assert.Equal(t, 24*time.Hour, c.TTLFor(models.Intent{Type: models.IntentTutorial}))
	assert.Equal(t, 15*time.Minute, c.TTLFor(models.Intent{Type: models.IntentPriceCheck, TimeSensitive: true}))
	// Per-intent override beats the time-sensitive shortcut.
	assert.Equal(t, 30*time.Minute, c.TTLFor(models.Intent{Type: models.IntentNews, TimeSensitive: true}))
}

// ==========================================
// Round trips
// ==========================================

func TestCache_SetGetRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(NewRedisStore(client), testCacheConfig(), logger.NewTestLogger(t))

	key := Key("rust tutorials", []string{"github"}, nil)
	c.Set(context.Background(), key, testItems(), []string{"github"}, time.Hour)

	entry, ok := c.Get(context.Background(), key)

	require.True(t, ok)
	require.Len(t, entry.Items, 1)
	assert.Equal(t, "gin", entry.Items[0].Title)
	assert.Equal(t, []string{"github"}, entry.ContributingSources)
	assert.Equal(t, int64(1), entry.HitCount)
}

func TestCache_HitCountAccumulates(t *testing.T) {
	c := New(NewMemoryStore(), testCacheConfig(), logger.NewNoOpLogger())

	key := Key("q", []string{"github"}, nil)
	c.Set(context.Background(), key, testItems(), []string{"github"}, time.Hour)

	c.Get(context.Background(), key)
	entry, ok := c.Get(context.Background(), key)

	require.True(t, ok)
	assert.Equal(t, int64(2), entry.HitCount)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(NewRedisStore(client), testCacheConfig(), logger.NewTestLogger(t))

	key := Key("q", []string{"github"}, nil)
	c.Set(context.Background(), key, testItems(), []string{"github"}, time.Minute)

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(context.Background(), key)
	assert.False(t, ok)
}

// ==========================================
// Fail-open behavior
// ==========================================

func TestCache_StoreErrorIsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("search:cache:x").SetErr(errors.New("connection refused"))

	c := New(NewRedisStore(client), testCacheConfig(), logger.NewNoOpLogger())

	_, ok := c.Get(context.Background(), "search:cache:x")
	assert.False(t, ok)
}

func TestCache_CorruptedEntryPurgedAndMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(NewRedisStore(client), testCacheConfig(), logger.NewTestLogger(t))

	require.NoError(t, mr.Set("search:cache:bad", "{not json"))

	_, ok := c.Get(context.Background(), "search:cache:bad")
	assert.False(t, ok)

	// Purged: the broken value is gone.
	assert.False(t, mr.Exists("search:cache:bad"))
}

func TestCache_SetErrorSwallowed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSet(`search:cache:.*`, `.*`, time.Hour).SetErr(errors.New("write refused"))

	c := New(NewRedisStore(client), testCacheConfig(), logger.NewNoOpLogger())

	// Must not panic or surface the error.
	c.Set(context.Background(), Key("q", nil, nil), testItems(), []string{"github"}, time.Hour)
}
