// Package relevance scores candidate items against the query. Keyword
// matching carries most of the weight; semantic similarity, when an
// embedder is configured, refines the ordering without overriding it.
package relevance

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// Scores are on a 0-100 scale throughout.
const maxScore = 100.0

var scoringStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "will": {}, "with": {}, "i": {}, "me": {}, "my": {}, "we": {},
	"you": {}, "your": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"this": {}, "these": {}, "those": {}, "what": {}, "which": {}, "who": {},
	"how": {}, "when": {}, "where": {}, "why": {}, "am": {}, "been": {},
	"being": {}, "have": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"about": {}, "after": {}, "before": {}, "show": {}, "find": {}, "get": {},
	"search": {},
}

var phraseRe = regexp.MustCompile(`"([^"]+)"`)

// Scorer blends keyword and semantic scores and produces the final
// ranked list. Safe for concurrent use.
type Scorer struct {
	keywordWeight  float64
	semanticWeight float64
	recencyWindow  time.Duration
	thresholds     map[string]float64
	semantic       *SemanticScorer
	logger         logger.Logger
}

func NewScorer(cfg config.SearchConfig, semantic *SemanticScorer, log logger.Logger) *Scorer {
	return &Scorer{
		keywordWeight:  cfg.KeywordWeight,
		semanticWeight: cfg.SemanticWeight,
		recencyWindow:  time.Duration(cfg.RecencyWindowDays) * 24 * time.Hour,
		thresholds:     cfg.CategoryThresholds,
		semantic:       semantic,
		logger:         log,
	}
}

// queryPlan is a query parsed once so per-item scoring stays cheap.
type queryPlan struct {
	phrases []string
	terms   []termMatcher
}

type termMatcher struct {
	text  string
	word  *regexp.Regexp // \bterm\b
	start *regexp.Regexp // ^term\b
}

func parseQuery(query string) queryPlan {
	var plan queryPlan

	for _, m := range phraseRe.FindAllStringSubmatch(query, -1) {
		plan.phrases = append(plan.phrases, strings.ToLower(m[1]))
	}

	remainder := phraseRe.ReplaceAllString(query, "")
	for _, word := range strings.Fields(strings.ToLower(remainder)) {
		if len(word) <= 1 {
			continue
		}
		if _, stop := scoringStopWords[word]; stop {
			continue
		}
		escaped := regexp.QuoteMeta(word)
		plan.terms = append(plan.terms, termMatcher{
			text:  word,
			word:  regexp.MustCompile(`\b` + escaped + `\b`),
			start: regexp.MustCompile(`^` + escaped + `\b`),
		})
	}

	return plan
}

// Score computes relevance for every item and returns them ranked:
// non-increasing relevance, ties broken by created_at descending, then
// by the fixed source priority.
func (s *Scorer) Score(ctx context.Context, query string, items []models.RawItem) []models.ScoredItem {
	plan := parseQuery(query)

	keyword := make([]float64, len(items))
	for i, item := range items {
		keyword[i] = s.keywordScore(plan, item)
	}

	var semantic []float64
	if s.semantic != nil {
		semantic = s.semantic.Similarity(ctx, query, items)
	}

	scored := make([]models.ScoredItem, 0, len(items))
	for i, item := range items {
		score := keyword[i]
		// Semantic refinement only applies where keywords found
		// something; it never resurrects a zero-keyword item.
		if semantic != nil && keyword[i] > 0 {
			score = keyword[i]*s.keywordWeight + semantic[i]*s.semanticWeight
		}
		if score > maxScore {
			score = maxScore
		}
		if score < s.thresholdFor(item) {
			continue
		}
		scored = append(scored, models.ScoredItem{RawItem: item, Relevance: score})
	}

	sortScored(scored)
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

func (s *Scorer) keywordScore(plan queryPlan, item models.RawItem) float64 {
	if len(plan.phrases) == 0 && len(plan.terms) == 0 {
		return 50.0
	}

	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)
	tags := make([]string, len(item.Tags))
	for i, t := range item.Tags {
		tags[i] = strings.ToLower(t)
	}

	score := scorePhrases(plan.phrases, title, body, tags)
	score += scoreTerms(plan.terms, title, body, tags)

	// Multi-signal queries are more specific, weight them up slightly.
	if len(plan.phrases)+len(plan.terms) > 1 {
		score *= 1.1
	}

	score += s.scoreMetadata(item)

	if score > maxScore {
		score = maxScore
	}
	return score
}

func scorePhrases(phrases []string, title, body string, tags []string) float64 {
	score := 0.0
	for _, phrase := range phrases {
		switch {
		case strings.Contains(title, phrase):
			switch {
			case strings.HasPrefix(title, phrase):
				score += 60
			case strings.HasSuffix(title, phrase):
				score += 50
			default:
				score += 45
			}
		case strings.Contains(body, phrase):
			score += 30
		case anyTagContains(tags, phrase):
			score += 25
		}
	}
	return score
}

func scoreTerms(terms []termMatcher, title, body string, tags []string) float64 {
	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		matched := false

		if titleMatches := len(term.word.FindAllString(title, -1)); titleMatches > 0 {
			base := 35.0
			if titleMatches > 1 {
				base += float64(titleMatches-1) * 5
			}
			if term.start.MatchString(title) {
				base += 10
			}
			score += base
			matched = true
		} else if body != "" {
			if bodyMatches := len(term.word.FindAllString(body, -1)); bodyMatches > 0 {
				extra := bodyMatches - 1
				if extra > 5 {
					extra = 5
				}
				score += 15 + float64(extra)
				matched = true
			}
		}

		for _, tag := range tags {
			if term.word.MatchString(tag) {
				score += 20
				matched = true
				break
			}
		}

		if matched {
			matchedTerms++
		}
	}

	if matchedTerms > 1 {
		score += float64(matchedTerms) * 10
	}
	return score
}

// scoreMetadata adds capped bonuses for popularity, recency and having
// a body, so engagement breaks ties without drowning out text relevance.
func (s *Scorer) scoreMetadata(item models.RawItem) float64 {
	score := 0.0

	popularity := popularityOf(item)
	switch {
	case popularity > 1000:
		score += 5
	case popularity > 100:
		score += 3
	case popularity > 10:
		score += 1
	}

	// Recency decays linearly to zero across the configured window.
	if !item.CreatedAt.IsZero() && s.recencyWindow > 0 {
		age := time.Since(item.CreatedAt)
		if age < 0 {
			age = 0
		}
		if age < s.recencyWindow {
			score += 5 * (1 - float64(age)/float64(s.recencyWindow))
		}
	}

	if item.Body != "" {
		score += 3
	}

	return score
}

// thresholdFor looks up the minimum relevance for the item's source
// category. Items without a category are never threshold-dropped.
func (s *Scorer) thresholdFor(item models.RawItem) float64 {
	category, _ := item.Metadata["category"].(string)
	if category == "" {
		return 0
	}
	return s.thresholds[category]
}

func popularityOf(item models.RawItem) float64 {
	if v, ok := item.Metadata["popularity"]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return 0
}

func anyTagContains(tags []string, phrase string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, phrase) {
			return true
		}
	}
	return false
}

func sortScored(items []models.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return models.SourceRank(items[i].Source) < models.SourceRank(items[j].Source)
	})
}
