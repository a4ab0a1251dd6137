// internal/source/source_test.go
package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/httpclient"
	"devpulse-search/internal/common/logger"
)

func testClient() *httpclient.Client {
	return httpclient.NewClient(5 * time.Second)
}

// ==========================================
// Registry
// ==========================================

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: "http://x"}, testClient(), logger.NewNoOpLogger())

	require.NoError(t, reg.Register(adapter))

	got, ok := reg.Get("github")
	assert.True(t, ok)
	assert.Equal(t, "github", got.Name())
	assert.Equal(t, "repository", reg.Category("github"))

	_, ok = reg.Get("reddit")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: "http://x"}, testClient(), logger.NewNoOpLogger())

	require.NoError(t, reg.Register(adapter))
	assert.Error(t, reg.Register(adapter))
}

// ==========================================
// GitHub adapter
// ==========================================

func TestGitHubAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "stars:>5")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"id": 1,
					"name": "gin",
					"html_url": "https://github.com/gin-gonic/gin",
					"description": "HTTP web framework",
					"language": "Go",
					"stargazers_count": 70000,
					"topics": ["go", "web"],
					"updated_at": "2025-06-01T10:00:00Z",
					"owner": {"login": "gin-gonic"}
				},
				{
					"id": 2,
					"name": "",
					"html_url": "",
					"stargazers_count": 10
				}
			]
		}`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: server.URL, MinStars: 5}, testClient(), logger.NewTestLogger(t))

	items, err := adapter.Search(context.Background(), "web framework", 10, nil)

	require.NoError(t, err)
	// Malformed second record is skipped, not fatal.
	require.Len(t, items, 1)
	assert.Equal(t, "github", items[0].Source)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "gin", items[0].Title)
	assert.Equal(t, 70000, items[0].Metadata["stars"])
	assert.Equal(t, "repository", items[0].Metadata["category"])
}

func TestGitHubAdapter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: server.URL}, testClient(), logger.NewNoOpLogger())

	_, err := adapter.Search(context.Background(), "anything", 10, nil)

	require.Error(t, err)
	se, ok := errors.AsSourceError(err)
	require.True(t, ok)
	assert.Equal(t, errors.SourceRateLimited, se.Kind)
}

func TestGitHubAdapter_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: server.URL}, testClient(), logger.NewNoOpLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := adapter.Search(ctx, "anything", 10, nil)

	require.Error(t, err)
	se, ok := errors.AsSourceError(err)
	require.True(t, ok)
	assert.Equal(t, errors.SourceTimeout, se.Kind)
}

func TestGitHubAdapter_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	adapter := NewGitHubAdapter(config.GitHubConfig{BaseURL: server.URL}, testClient(), logger.NewNoOpLogger())

	_, err := adapter.Search(context.Background(), "anything", 10, nil)

	require.Error(t, err)
	se, ok := errors.AsSourceError(err)
	require.True(t, ok)
	assert.Equal(t, errors.SourceInvalidResponse, se.Kind)
}

// ==========================================
// HackerNews adapter
// ==========================================

func TestHackerNewsAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "story", r.URL.Query().Get("tags"))

		w.Write([]byte(`{
			"hits": [
				{
					"objectID": "101",
					"title": "Show HN: My project",
					"url": "",
					"author": "pg",
					"points": 250,
					"num_comments": 40,
					"created_at": "2025-08-01T12:00:00Z"
				},
				{
					"objectID": "102",
					"title": "",
					"points": 5
				}
			]
		}`))
	}))
	defer server.Close()

	adapter := NewHackerNewsAdapter(config.HackerNewsConfig{BaseURL: server.URL, MinPoints: 10}, testClient(), logger.NewTestLogger(t))

	items, err := adapter.Search(context.Background(), "my project", 10, nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	// Missing URL falls back to the HN item page.
	assert.Equal(t, "https://news.ycombinator.com/item?id=101", items[0].URL)
	assert.Equal(t, 250, items[0].Metadata["points"])
}

// ==========================================
// Dev.to adapter
// ==========================================

func TestDevToAdapter_FiltersByQueryTerms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)

		w.Write([]byte(`[
			{
				"id": 1,
				"title": "Rust async patterns",
				"url": "https://dev.to/a/rust-async",
				"description": "Deep dive into tokio",
				"tag_list": ["rust", "async"],
				"published_at": "2025-07-10T08:00:00Z",
				"public_reactions_count": 120,
				"user": {"name": "ferris"}
			},
			{
				"id": 2,
				"title": "CSS grid basics",
				"url": "https://dev.to/b/css-grid",
				"description": "Layouts",
				"tag_list": ["css"],
				"published_at": "2025-07-11T08:00:00Z",
				"public_reactions_count": 30,
				"user": {"name": "someone"}
			}
		]`))
	}))
	defer server.Close()

	adapter := NewDevToAdapter(config.DevToConfig{BaseURL: server.URL}, testClient(), logger.NewTestLogger(t))

	items, err := adapter.Search(context.Background(), "rust async", 10, nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rust async patterns", items[0].Title)
	assert.Equal(t, 120, items[0].Metadata["reactions"])
}

// ==========================================
// Crypto adapter
// ==========================================

func TestCryptoAdapter_KnownCoin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))

		w.Write([]byte(`[
			{
				"id": "bitcoin",
				"symbol": "btc",
				"name": "Bitcoin",
				"current_price": 95000.5,
				"price_change_percentage_24h": 2.4,
				"market_cap": 1900000000000,
				"total_volume": 40000000000,
				"market_cap_rank": 1,
				"last_updated": "2025-08-25T09:00:00Z"
			}
		]`))
	}))
	defer server.Close()

	adapter := NewCryptoAdapter(config.CryptoConfig{BaseURL: server.URL}, testClient(), logger.NewTestLogger(t))

	items, err := adapter.Search(context.Background(), "bitcoin price today", 10, nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "BTC - Bitcoin", items[0].Title)
	assert.Equal(t, "market", items[0].Metadata["category"])
	assert.Equal(t, 1.9e12, items[0].Metadata["market_cap"])
}

func TestCryptoAdapter_TrendingFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/trending", r.URL.Path)

		w.Write([]byte(`{
			"coins": [
				{"item": {"id": "newcoin", "symbol": "nc", "name": "NewCoin", "market_cap_rank": 50,
					"data": {"price": 0.5, "price_change_percentage_24h": {"usd": 12.0}}}}
			]
		}`))
	}))
	defer server.Close()

	adapter := NewCryptoAdapter(config.CryptoConfig{BaseURL: server.URL}, testClient(), logger.NewTestLogger(t))

	items, err := adapter.Search(context.Background(), "what is mooning", 5, nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "NC - NewCoin", items[0].Title)
	assert.Equal(t, true, items[0].Metadata["trending"])
}
