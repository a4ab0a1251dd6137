// internal/intent/routing.go
package intent

import "devpulse-search/internal/models"

// intentSources routes each intent to the sources most likely to hold
// relevant items.
var intentSources = map[models.IntentType][]string{
	models.IntentTutorial:      {"github", "devto"},
	models.IntentCodeSearch:    {"github", "devto"},
	models.IntentDiscussion:    {"reddit", "hackernews"},
	models.IntentNews:          {"hackernews", "reddit", "devto"},
	models.IntentPriceCheck:    {"crypto", "stocks"},
	models.IntentDocumentation: {"github", "devto"},
}

// BroadSources is the full fallback set used for ambiguous queries and
// for the orchestrator's single broadening round.
var BroadSources = []string{"github", "reddit", "hackernews", "devto", "stocks", "crypto"}

// defaultSources is the code-leaning fallback when the intent is unknown
// but confidence in the extracted signals is still reasonable.
var defaultSources = []string{"github", "devto", "hackernews"}

// ResolveSources determines the source set for an intent.
//
// Explicit sources are exclusive: when the query names a source, only
// that source is searched, and intent-derived sets are ignored entirely.
// Otherwise routing follows the intent table; unknown intents get the
// broad set when confidence is low and the default set when not.
// Detected crypto or stock entities pull their market source in front.
func ResolveSources(it models.Intent) []string {
	if len(it.ExplicitSources) > 0 {
		out := make([]string, len(it.ExplicitSources))
		copy(out, it.ExplicitSources)
		return out
	}

	var sources []string
	if mapped, ok := intentSources[it.Type]; ok {
		sources = append(sources, mapped...)
	} else if it.Confidence < LowConfidenceThreshold {
		sources = append(sources, BroadSources...)
	} else {
		sources = append(sources, defaultSources...)
	}

	if _, ok := it.Entities["cryptocurrencies"]; ok && !contains(sources, "crypto") {
		sources = append([]string{"crypto"}, sources...)
	}
	if _, ok := it.Entities["stocks"]; ok && !contains(sources, "stocks") {
		sources = append([]string{"stocks"}, sources...)
	}

	return dedupe(sources)
}

func dedupe(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
