// internal/relevance/semantic.go
package relevance

import (
	"context"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/embeddings"

	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// SemanticScorer computes embedding similarity between the query and
// each item. Failures degrade to a zero semantic score; they never fail
// a search. Embeddings are cached by content hash for the process
// lifetime since item text is effectively immutable.
type SemanticScorer struct {
	embedder embeddings.Embedder
	pool     *ants.Pool
	logger   logger.Logger

	mu    sync.RWMutex
	cache map[uint64][]float32
}

func NewSemanticScorer(embedder embeddings.Embedder, poolSize int, log logger.Logger) (*SemanticScorer, error) {
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &SemanticScorer{
		embedder: embedder,
		pool:     pool,
		logger:   log,
		cache:    make(map[uint64][]float32),
	}, nil
}

func (s *SemanticScorer) Close() {
	s.pool.Release()
}

// Similarity returns one score per item on the 0-100 scale. Item
// embeddings run concurrently on the bounded worker pool.
func (s *SemanticScorer) Similarity(ctx context.Context, query string, items []models.RawItem) []float64 {
	scores := make([]float64, len(items))

	queryVec, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, keyword-only scoring", map[string]interface{}{
			"error": err.Error(),
		})
		return scores
	}

	var wg sync.WaitGroup
	for i := range items {
		i := i
		content := embedText(items[i])

		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()

			vec, err := s.embed(ctx, content)
			if err != nil {
				s.logger.Debug("item embedding failed", map[string]interface{}{
					"source": items[i].Source,
					"id":     items[i].ID,
					"error":  err.Error(),
				})
				return
			}

			sim := cosine(queryVec, vec)
			if sim < 0 {
				sim = 0
			}
			scores[i] = sim * 100
		}); err != nil {
			wg.Done()
		}
	}
	wg.Wait()

	return scores
}

// embedText weights the title double, matching how much more signal a
// title carries than a body snippet.
func embedText(item models.RawItem) string {
	body := item.Body
	if len(body) > 500 {
		body = body[:500]
	}
	return item.Title + " " + item.Title + " " + body
}

func (s *SemanticScorer) embed(ctx context.Context, text string) ([]float32, error) {
	key := xxhash.Sum64String(text)

	s.mu.RLock()
	if vec, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return vec, nil
	}
	s.mu.RUnlock()

	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = vec
	s.mu.Unlock()

	return vec, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
