// Package orchestrator runs the progressive-refinement search pipeline:
// classify, resolve sources, consult the cache, fan out concurrent
// fetches, score, optionally broaden once, and assemble the final
// ranked result.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"devpulse-search/internal/cache"
	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/metrics"
	"devpulse-search/internal/intent"
	"devpulse-search/internal/models"
	"devpulse-search/internal/relevance"
	"devpulse-search/internal/source"
)

type Orchestrator struct {
	classifier *intent.Classifier
	registry   *source.Registry
	scorer     *relevance.Scorer
	cache      *cache.Cache
	cfg        config.SearchConfig
	logger     logger.Logger
}

func New(
	classifier *intent.Classifier,
	registry *source.Registry,
	scorer *relevance.Scorer,
	qcache *cache.Cache,
	cfg config.SearchConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		registry:   registry,
		scorer:     scorer,
		cache:      qcache,
		cfg:        cfg,
		logger:     log,
	}
}

// Search executes one query end to end. The only fatal input is a
// structurally invalid request; upstream failures degrade the result
// instead of failing it.
func (o *Orchestrator) Search(ctx context.Context, query string, identity string, opts models.SearchOptions) (models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return models.SearchResult{}, errors.NewInvalidRequestError("query must not be empty")
	}

	metrics.ActiveSearches.Inc()
	defer metrics.ActiveSearches.Dec()

	start := time.Now()
	var timings models.Timings

	classifyStart := time.Now()
	it := o.classifier.Classify(query)
	timings.Classification = time.Since(classifyStart)

	// Caller-supplied sources behave exactly like explicit sources in
	// the query text: they replace the intent-derived set.
	if len(opts.ExplicitSources) > 0 {
		it.ExplicitSources = opts.ExplicitSources
	}

	if opts.Mode == models.ModeSkipSearch {
		timings.Total = time.Since(start)
		return models.SearchResult{Intent: it, Timings: timings}, nil
	}

	limit := o.clampRequestLimit(opts.Limit)
	resolved := intent.ResolveSources(it)
	filters := filtersFromIntent(it)

	cacheKey := cache.Key(query, resolved, filters)
	cacheStart := time.Now()
	entry, hit := o.cache.Get(ctx, cacheKey)
	timings.CacheLookup = time.Since(cacheStart)

	if hit {
		timings.Total = time.Since(start)
		o.recordOutcome(it, "cache_hit", timings.Total)
		return models.SearchResult{
			Items:               entry.Items,
			ContributingSources: entry.ContributingSources,
			Intent:              it,
			CacheHit:            true,
			Timings:             timings,
		}, nil
	}

	fetchLimit := int(float64(limit) * o.cfg.OverfetchMultiplier)

	fetchStart := time.Now()
	raw, contributing, perSource := o.fetchSources(ctx, resolved, query, fetchLimit, filters)
	timings.Fetch = time.Since(fetchStart)
	timings.PerSource = perSource

	scoreStart := time.Now()
	items := o.rank(ctx, query, raw, limit)
	timings.Scoring = time.Since(scoreStart)

	// One broadening round for sparse results on an ambiguous query.
	if len(items) < limit/2 && it.Confidence < intent.LowConfidenceThreshold {
		extra := unusedSources(resolved)
		if len(extra) > 0 {
			o.logger.Info("broadening source set", map[string]interface{}{
				"query":     query,
				"surviving": len(items),
				"extra":     extra,
			})
			broadenStart := time.Now()
			extraRaw, extraContributing, extraPerSource := o.fetchSources(ctx, extra, query, fetchLimit, filters)
			timings.Fetch += time.Since(broadenStart)
			for name, d := range extraPerSource {
				timings.PerSource[name] = d
			}
			contributing = append(contributing, extraContributing...)
			raw = append(raw, extraRaw...)

			rescoreStart := time.Now()
			items = o.rank(ctx, query, raw, limit)
			timings.Scoring += time.Since(rescoreStart)
		}
	}

	o.cache.Set(ctx, cacheKey, items, contributing, o.cache.TTLFor(it))

	timings.Total = time.Since(start)
	o.recordOutcome(it, "ok", timings.Total)

	return models.SearchResult{
		Items:               items,
		ContributingSources: contributing,
		Intent:              it,
		CacheHit:            false,
		Timings:             timings,
	}, nil
}

type fetchOutcome struct {
	source string
	items  []models.RawItem
	took   time.Duration
	err    error
}

// fetchSources fans out one fetch per resolved source. Each fetch runs
// under its own timeout; a failed source is dropped, never fatal.
func (o *Orchestrator) fetchSources(ctx context.Context, names []string, query string, limit int, filters map[string]interface{}) ([]models.RawItem, []string, map[string]time.Duration) {
	results := make(chan fetchOutcome, len(names))
	var wg sync.WaitGroup

	timeout := time.Duration(o.cfg.SourceTimeout) * time.Millisecond

	launched := 0
	for _, name := range names {
		adapter, ok := o.registry.Get(name)
		if !ok {
			o.logger.Debug("skipping unregistered source", map[string]interface{}{
				"source": name,
			})
			continue
		}

		launched++
		wg.Add(1)
		go func(name string, adapter source.Adapter) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			items, err := adapter.Search(fetchCtx, query, limit, filters)
			results <- fetchOutcome{source: name, items: items, took: time.Since(started), err: err}
		}(name, adapter)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var raw []models.RawItem
	var contributing []string
	perSource := make(map[string]time.Duration, launched)

	for outcome := range results {
		perSource[outcome.source] = outcome.took
		metrics.SourceFetchDuration.WithLabelValues(outcome.source).Observe(outcome.took.Seconds())

		if outcome.err != nil {
			kind := "unavailable"
			if se, ok := errors.AsSourceError(outcome.err); ok {
				kind = string(se.Kind)
			}
			metrics.SourceFetchFailures.WithLabelValues(outcome.source, kind).Inc()
			o.logger.Warn("source fetch failed, dropping source", map[string]interface{}{
				"source": outcome.source,
				"kind":   kind,
				"error":  outcome.err.Error(),
			})
			continue
		}
		if len(outcome.items) == 0 {
			continue
		}

		raw = append(raw, outcome.items...)
		contributing = append(contributing, outcome.source)
	}

	return raw, contributing, perSource
}

// rank scores, deduplicates keeping the higher-scored duplicate,
// truncates to limit and renumbers ranks.
func (o *Orchestrator) rank(ctx context.Context, query string, raw []models.RawItem, limit int) []models.ScoredItem {
	scored := o.scorer.Score(ctx, query, raw)

	seen := make(map[string]struct{}, len(scored))
	deduped := scored[:0]
	for _, item := range scored {
		key := item.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, item)
	}

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	for i := range deduped {
		deduped[i].Rank = i + 1
	}
	return deduped
}

func (o *Orchestrator) clampRequestLimit(limit int) int {
	if limit <= 0 {
		return o.cfg.DefaultLimit
	}
	if limit > o.cfg.MaxLimit {
		return o.cfg.MaxLimit
	}
	return limit
}

// filtersFromIntent maps extracted entities onto adapter filter keys.
func filtersFromIntent(it models.Intent) map[string]interface{} {
	filters := make(map[string]interface{})
	if languages, ok := it.Entities["languages"]; ok && len(languages) > 0 {
		filters["language"] = languages[0]
	}
	return filters
}

// unusedSources returns the broad set minus the sources already tried.
func unusedSources(used []string) []string {
	tried := make(map[string]struct{}, len(used))
	for _, name := range used {
		tried[name] = struct{}{}
	}
	var extra []string
	for _, name := range intent.BroadSources {
		if _, ok := tried[name]; !ok {
			extra = append(extra, name)
		}
	}
	return extra
}

func (o *Orchestrator) recordOutcome(it models.Intent, outcome string, total time.Duration) {
	metrics.SearchRequestsTotal.WithLabelValues(string(it.Type), outcome).Inc()
	metrics.SearchRequestDuration.WithLabelValues(string(it.Type)).Observe(total.Seconds())
}
