// internal/relevance/scorer_test.go
package relevance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

func testScorerConfig() config.SearchConfig {
	return config.SearchConfig{
		KeywordWeight:     0.7,
		SemanticWeight:    0.3,
		RecencyWindowDays: 30,
	}
}

func newKeywordScorer(t *testing.T) *Scorer {
	return NewScorer(testScorerConfig(), nil, logger.NewTestLogger(t))
}

func TestScore_TitleMatchBeatsBodyMatch(t *testing.T) {
	scorer := newKeywordScorer(t)

	items := []models.RawItem{
		{Source: "devto", ID: "1", Title: "Something else", Body: "mentions rust once"},
		{Source: "devto", ID: "2", Title: "Rust for beginners", Body: "intro"},
	}

	scored := scorer.Score(context.Background(), "rust", items)

	require.Len(t, scored, 2)
	assert.Equal(t, "2", scored[0].ID)
	assert.Greater(t, scored[0].Relevance, scored[1].Relevance)
	assert.Equal(t, 1, scored[0].Rank)
	assert.Equal(t, 2, scored[1].Rank)
}

func TestScore_QuotedPhraseInTitle(t *testing.T) {
	scorer := newKeywordScorer(t)

	items := []models.RawItem{
		{Source: "github", ID: "1", Title: "machine learning handbook"},
		{Source: "github", ID: "2", Title: "handbook of learning, machine edition"},
	}

	scored := scorer.Score(context.Background(), `"machine learning"`, items)

	assert.Equal(t, "1", scored[0].ID)
	assert.Greater(t, scored[0].Relevance, scored[1].Relevance)
}

func TestScore_TagMatchCounts(t *testing.T) {
	scorer := newKeywordScorer(t)

	items := []models.RawItem{
		{Source: "devto", ID: "1", Title: "Weekly digest", Tags: []string{"golang"}},
		{Source: "devto", ID: "2", Title: "Weekly digest"},
	}

	scored := scorer.Score(context.Background(), "golang", items)

	assert.Equal(t, "1", scored[0].ID)
}

func TestScore_WordBoundary(t *testing.T) {
	scorer := newKeywordScorer(t)

	// "ai" must not match inside "wait".
	items := []models.RawItem{
		{Source: "hackernews", ID: "1", Title: "Please wait here"},
		{Source: "hackernews", ID: "2", Title: "AI research roundup"},
	}

	scored := scorer.Score(context.Background(), "ai", items)

	assert.Equal(t, "2", scored[0].ID)
	assert.Greater(t, scored[0].Relevance, scored[1].Relevance)
}

func TestScore_StopWordOnlyQueryIsNeutral(t *testing.T) {
	scorer := newKeywordScorer(t)

	items := []models.RawItem{{Source: "devto", ID: "1", Title: "Anything"}}

	scored := scorer.Score(context.Background(), "the and of", items)

	assert.Equal(t, 50.0, scored[0].Relevance)
}

func TestScore_CappedAtHundred(t *testing.T) {
	scorer := newKeywordScorer(t)

	items := []models.RawItem{
		{
			Source: "github",
			ID:     "1",
			Title:  "rust rust rust async async tokio",
			Body:   "rust async tokio rust async tokio",
			Tags:   []string{"rust", "async", "tokio"},
			Metadata: map[string]interface{}{
				"popularity": 50000.0,
			},
			CreatedAt: time.Now(),
		},
	}

	scored := scorer.Score(context.Background(), "rust async tokio", items)

	assert.LessOrEqual(t, scored[0].Relevance, 100.0)
}

func TestScore_TieBreakByCreatedAtThenSource(t *testing.T) {
	scorer := newKeywordScorer(t)

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Identical text so relevance ties; only the tie-breakers differ.
	items := []models.RawItem{
		{Source: "devto", ID: "old", Title: "go generics", CreatedAt: older},
		{Source: "devto", ID: "new", Title: "go generics", CreatedAt: newer},
		{Source: "github", ID: "gh", Title: "go generics", CreatedAt: newer},
	}

	scored := scorer.Score(context.Background(), "xyzzy", items)

	// All score zero for an unmatched term: pure tie-break ordering.
	require.Len(t, scored, 3)
	assert.Equal(t, "gh", scored[0].ID)
	assert.Equal(t, "new", scored[1].ID)
	assert.Equal(t, "old", scored[2].ID)
}

func TestScore_CategoryThresholdDropsWeakItems(t *testing.T) {
	cfg := testScorerConfig()
	cfg.CategoryThresholds = map[string]float64{"repository": 20}
	scorer := NewScorer(cfg, nil, logger.NewTestLogger(t))

	items := []models.RawItem{
		{Source: "github", ID: "hit", Title: "terraform modules",
			Metadata: map[string]interface{}{"category": "repository"}},
		{Source: "github", ID: "weak", Title: "unrelated",
			Metadata: map[string]interface{}{"category": "repository"}},
	}

	scored := scorer.Score(context.Background(), "terraform", items)

	require.Len(t, scored, 1)
	assert.Equal(t, "hit", scored[0].ID)
}

func TestScore_PopularityBreaksTextTies(t *testing.T) {
	scorer := newKeywordScorer(t)

	now := time.Now()
	items := []models.RawItem{
		{Source: "github", ID: "small", Title: "http router", CreatedAt: now,
			Metadata: map[string]interface{}{"popularity": 5.0}},
		{Source: "github", ID: "big", Title: "http router", CreatedAt: now,
			Metadata: map[string]interface{}{"popularity": 20000.0}},
	}

	scored := scorer.Score(context.Background(), "http router", items)

	assert.Equal(t, "big", scored[0].ID)
}
