// internal/models/search.go
package models

import "time"

// IntentType classifies what a query is asking for.
type IntentType string

const (
	IntentTutorial      IntentType = "tutorial"
	IntentCodeSearch    IntentType = "code_search"
	IntentNews          IntentType = "news"
	IntentPriceCheck    IntentType = "price_check"
	IntentDiscussion    IntentType = "discussion"
	IntentDocumentation IntentType = "documentation"
	IntentUnknown       IntentType = "unknown"
)

// Query is one user request. Immutable once created.
type Query struct {
	Text        string    `json:"text"`
	Identity    string    `json:"identity"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Intent is the classified purpose of a query. Computed once per Query.
type Intent struct {
	Type            IntentType          `json:"type"`
	Confidence      float64             `json:"confidence"`
	Entities        map[string][]string `json:"entities,omitempty"`
	ExplicitSources []string            `json:"explicit_sources,omitempty"`
	TimeSensitive   bool                `json:"time_sensitive"`
	Keywords        []string            `json:"keywords,omitempty"`
}

// RawItem is one candidate result as returned by a source adapter.
// Transient; never persisted.
type RawItem struct {
	Source    string                 `json:"source"`
	ID        string                 `json:"id,omitempty"`
	Title     string                 `json:"title"`
	URL       string                 `json:"url"`
	Body      string                 `json:"body,omitempty"`
	Author    string                 `json:"author,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ScoredItem is a RawItem with its relevance score and final rank.
type ScoredItem struct {
	RawItem
	Relevance float64 `json:"relevance"`
	Rank      int     `json:"rank"`
}

// DedupeKey identifies an item for deduplication: the normalized URL
// when present (so the same page found through two sources collapses),
// otherwise (source, provider-local id).
func (r RawItem) DedupeKey() string {
	if r.URL != "" {
		return NormalizeURL(r.URL)
	}
	return r.Source + "/" + r.ID
}

// SearchMode selects between full retrieval and a narration-only response.
type SearchMode string

const (
	ModeSearch     SearchMode = "search"
	ModeSkipSearch SearchMode = "skip_search"
)

// SearchOptions tune a single Search call.
type SearchOptions struct {
	ExplicitSources []string   `json:"explicit_sources,omitempty"`
	Limit           int        `json:"limit"`
	Mode            SearchMode `json:"mode"`
}

// Timings is the per-phase latency breakdown of one search.
type Timings struct {
	Classification time.Duration            `json:"classification_ns"`
	CacheLookup    time.Duration            `json:"cache_lookup_ns"`
	Fetch          time.Duration            `json:"fetch_ns"`
	Scoring        time.Duration            `json:"scoring_ns"`
	Total          time.Duration            `json:"total_ns"`
	PerSource      map[string]time.Duration `json:"per_source_ns,omitempty"`
}

// SearchResult is the engine's answer to one query.
type SearchResult struct {
	Items               []ScoredItem   `json:"items"`
	ContributingSources []string       `json:"contributing_sources"`
	Intent              Intent         `json:"intent"`
	Agent               *AgentResponse `json:"agent,omitempty"`
	CacheHit            bool           `json:"cache_hit"`
	Timings             Timings        `json:"timings"`
}

// sourcePriority is the fixed tie-break order for equally scored, equally
// aged items. Unlisted sources sort last.
var sourcePriority = map[string]int{
	"github":     0,
	"hackernews": 1,
	"devto":      2,
	"reddit":     3,
	"crypto":     4,
	"stocks":     5,
}

// SourceRank returns the tie-break priority of a source name.
func SourceRank(source string) int {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return len(sourcePriority)
}
