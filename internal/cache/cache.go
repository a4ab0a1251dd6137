// Package cache is the query result cache. Every store failure is
// fail-open: a broken cache degrades to slower searches, never to
// failed ones.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"devpulse-search/internal/common/config"
	apperrors "devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/metrics"
	"devpulse-search/internal/models"
)

// ErrNotFound is returned by stores when a key has no live entry.
var ErrNotFound = errors.New("cache: entry not found")

// Store is the persistence seam under the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Entry is one cached search result.
type Entry struct {
	Items               []models.ScoredItem `json:"items"`
	ContributingSources []string            `json:"contributing_sources"`
	CreatedAt           time.Time           `json:"created_at"`
	ExpiresAt           time.Time           `json:"expires_at"`
	HitCount            int64               `json:"hit_count"`
}

type Cache struct {
	store            Store
	defaultTTL       time.Duration
	timeSensitiveTTL time.Duration
	perIntentTTL     map[models.IntentType]time.Duration
	logger           logger.Logger
}

func New(store Store, cfg config.CacheConfig, log logger.Logger) *Cache {
	perIntent := make(map[models.IntentType]time.Duration, len(cfg.PerIntentTTL))
	for intentName, minutes := range cfg.PerIntentTTL {
		perIntent[models.IntentType(intentName)] = time.Duration(minutes) * time.Minute
	}
	return &Cache{
		store:            store,
		defaultTTL:       time.Duration(cfg.DefaultTTL) * time.Minute,
		timeSensitiveTTL: time.Duration(cfg.TimeSensitiveTTL) * time.Minute,
		perIntentTTL:     perIntent,
		logger:           log,
	}
}

// Key builds a deterministic cache key: normalized query text, sorted
// source list, sorted filters. Two requests asking the same thing hash
// to the same key regardless of argument ordering.
func Key(query string, sources []string, filters map[string]interface{}) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	sortedSources := make([]string, len(sources))
	copy(sortedSources, sources)
	sort.Strings(sortedSources)

	filterKeys := make([]string, 0, len(filters))
	for k := range filters {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)

	var b strings.Builder
	b.WriteString(normalized)
	b.WriteByte('|')
	b.WriteString(strings.Join(sortedSources, ","))
	b.WriteByte('|')
	for _, k := range filterKeys {
		fmt.Fprintf(&b, "%s=%v;", k, filters[k])
	}

	return fmt.Sprintf("search:cache:%016x", xxhash.Sum64String(b.String()))
}

// TTLFor picks the TTL for an intent: per-intent override first, then
// the short time-sensitive TTL, then the default.
func (c *Cache) TTLFor(intent models.Intent) time.Duration {
	if ttl, ok := c.perIntentTTL[intent.Type]; ok {
		return ttl
	}
	if intent.TimeSensitive {
		return c.timeSensitiveTTL
	}
	return c.defaultTTL
}

// Get returns the live entry for key, or false on miss, expiry,
// corruption or store failure. A hit bumps the entry's hit counter
// best-effort.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			return nil, false
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed, treating as miss", map[string]interface{}{
			"key":   key,
			"error": apperrors.NewCacheUnavailableError(err).Error(),
		})
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache entry corrupted, purging", map[string]interface{}{
			"key":   key,
			"error": apperrors.NewCacheCorruptedError(key, err).Error(),
		})
		_ = c.store.Delete(ctx, key)
		return nil, false
	}

	// Store TTL normally handles expiry; this guards against clock skew
	// between writer and store.
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		_ = c.store.Delete(ctx, key)
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	entry.HitCount++
	c.writeBack(ctx, key, entry)

	return &entry, true
}

// Set stores an entry under key for ttl. Best-effort: failures are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, items []models.ScoredItem, contributing []string, ttl time.Duration) {
	now := time.Now().UTC()
	entry := Entry{
		Items:               items,
		ContributingSources: contributing,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache entry encode failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}

	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (c *Cache) writeBack(ctx context.Context, key string, entry Entry) {
	remaining := time.Until(entry.ExpiresAt)
	if remaining <= 0 {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, key, raw, remaining)
}
