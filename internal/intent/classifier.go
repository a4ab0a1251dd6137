// Package intent classifies a raw query string into a structured Intent
// using pattern matching and entity dictionaries. No network calls, no
// model inference; a full classification runs in microseconds.
package intent

import (
	"regexp"
	"strings"

	"devpulse-search/internal/models"
)

// LowConfidenceThreshold is the confidence below which a query is treated
// as ambiguous: routing falls back to the broad source set and the
// orchestrator is allowed one broadening round on sparse results.
const LowConfidenceThreshold = 0.3

// Classifier is a pure pattern-based query classifier. Safe for
// concurrent use; all state is compiled once in NewClassifier.
type Classifier struct {
	sourcePatterns map[string][]*regexp.Regexp
	intentPatterns map[models.IntentType][]*regexp.Regexp
	timePatterns   []*regexp.Regexp
	tokenRe        *regexp.Regexp
	wordRe         *regexp.Regexp
}

func NewClassifier() *Classifier {
	return &Classifier{
		sourcePatterns: compileGroups(map[string][]string{
			"github": {
				`\b(on|from|in|at)\s+github\b`,
				`\bgithub\s+(repo|repository|repositories|code|project|projects)\b`,
			},
			"reddit": {
				`\b(on|from|in|at)\s+reddit\b`,
				`\breddit\s+(thread|post|discussion)\b`,
				`\bsubreddit\b`,
			},
			"hackernews": {
				`\b(on|from|in|at)\s+(hackernews|hacker\s*news|hn)\b`,
				`\b(hackernews|hn)\s+(post|story|discussion)\b`,
			},
			"devto": {
				`\b(on|from|in|at)\s+dev\.to\b`,
				`\bdev\.to\s+(article|post|tutorial)\b`,
			},
			"stocks": {
				`\b(stock|stocks|share|shares)\s+(price|ticker|quote)\b`,
				`\b(nasdaq|nyse|dow)\s+(price|quote|ticker)\b`,
				`\b[a-z]{2,5}\s+(stock|price|quote)\b`,
			},
			"crypto": {
				`\b(bitcoin|ethereum|crypto|cryptocurrency)\s+(price|value|market|news|updates?)\b`,
				`\b(btc|eth|crypto)\s+(price|chart|value|news)\b`,
				`\bcryptocurrency\b`,
				`\bcrypto\s+market\b`,
			},
		}),
		intentPatterns: compileIntentGroups(map[models.IntentType][]string{
			models.IntentTutorial: {
				`\b(tutorial|tutorials|guide|guides|how\s+to|learn|learning)\b`,
				`\bteach\s+me\b`,
				`\bstep\s+by\s+step\b`,
			},
			models.IntentDiscussion: {
				`\b(discussion|discussions|debate|opinion|opinions|thread|threads)\b`,
				`\bwhat\s+(do\s+people|does\s+everyone|are\s+people)\s+think\b`,
				`\b(talk|talking)\s+about\b`,
			},
			models.IntentNews: {
				`\b(trending|popular|hot|latest|recent|new|news)\b`,
				`\b(today|this\s+week|this\s+month)\b`,
				`\bwhat'?s\s+(hot|new|trending)\b`,
			},
			models.IntentPriceCheck: {
				`\b(price|value|cost|quote|ticker)\b`,
				`\bhow\s+much\b`,
				`\b(bitcoin|btc|ethereum|eth|stock)\s+(price|value)\b`,
			},
			models.IntentDocumentation: {
				`\b(docs|documentation|api\s+reference|official\s+docs)\b`,
				`\bapi\s+documentation\b`,
			},
			models.IntentCodeSearch: {
				`\b(repo|repos|repository|repositories|code|project|projects)\b`,
				`\b(library|libraries|package|packages|framework|frameworks)\b`,
				`\bopen\s+source\b`,
			},
		}),
		timePatterns: compile(
			`\b(today|tonight|now|current|latest|recent|this\s+week|this\s+month)\b`,
			`\b\d{4}\b`,
			`\breal[\-\s]?time\b`,
		),
		tokenRe: regexp.MustCompile(`\b\w+(?:\.\w+)?\b`),
		wordRe:  regexp.MustCompile(`\b\w+\b`),
	}
}

// tieBreak orders intents by specificity when pattern counts tie.
var tieBreak = []models.IntentType{
	models.IntentPriceCheck,
	models.IntentTutorial,
	models.IntentCodeSearch,
	models.IntentDiscussion,
	models.IntentNews,
	models.IntentDocumentation,
}

// Classify maps a query string to an Intent. It never fails: a query
// matching nothing comes back as IntentUnknown with low confidence.
func (c *Classifier) Classify(query string) models.Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	explicit := c.detectSources(q)
	intentType := c.detectIntent(q)
	entities := c.extractEntities(q)
	keywords := c.extractKeywords(q)
	timeSensitive := c.isTimeSensitive(q)
	confidence := c.scoreConfidence(q, explicit, intentType, entities, keywords)

	return models.Intent{
		Type:            intentType,
		Confidence:      confidence,
		Entities:        entities,
		ExplicitSources: explicit,
		TimeSensitive:   timeSensitive,
		Keywords:        keywords,
	}
}

func (c *Classifier) detectSources(q string) []string {
	var detected []string
	// Deterministic iteration: check in fixed source-priority order.
	for _, source := range []string{"github", "hackernews", "devto", "reddit", "crypto", "stocks"} {
		for _, re := range c.sourcePatterns[source] {
			if re.MatchString(q) {
				detected = append(detected, source)
				break
			}
		}
	}
	return detected
}

func (c *Classifier) detectIntent(q string) models.IntentType {
	scores := make(map[models.IntentType]int)
	for it, patterns := range c.intentPatterns {
		for _, re := range patterns {
			if re.MatchString(q) {
				scores[it]++
			}
		}
	}
	if len(scores) == 0 {
		return models.IntentUnknown
	}

	max := 0
	for _, n := range scores {
		if n > max {
			max = n
		}
	}
	for _, it := range tieBreak {
		if scores[it] == max {
			return it
		}
	}
	return models.IntentUnknown
}

// extractEntities checks unigrams, bigrams and trigrams against the
// entity dictionaries so multi-word entries like "machine learning" match.
func (c *Classifier) extractEntities(q string) map[string][]string {
	tokens := c.tokenRe.FindAllString(q, -1)

	ngrams := make([]string, 0, len(tokens)*3)
	ngrams = append(ngrams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		ngrams = append(ngrams, tokens[i]+" "+tokens[i+1])
	}
	for i := 0; i+2 < len(tokens); i++ {
		ngrams = append(ngrams, tokens[i]+" "+tokens[i+1]+" "+tokens[i+2])
	}

	entities := make(map[string][]string)
	for _, ngram := range ngrams {
		for _, cat := range entityCategories {
			if _, ok := cat.set[ngram]; ok {
				if !contains(entities[cat.name], ngram) {
					entities[cat.name] = append(entities[cat.name], ngram)
				}
				break
			}
		}
	}
	return entities
}

func (c *Classifier) extractKeywords(q string) []string {
	tokens := c.wordRe.FindAllString(q, -1)

	seen := make(map[string]struct{}, len(tokens))
	var keywords []string
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

func (c *Classifier) isTimeSensitive(q string) bool {
	for _, re := range c.timePatterns {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// scoreConfidence is additive: explicit source mention, a recognized
// intent, entities, usable keywords and a reasonable query length each
// contribute. Capped below 1.0 since pattern matching is never certain.
func (c *Classifier) scoreConfidence(
	q string,
	explicit []string,
	intentType models.IntentType,
	entities map[string][]string,
	keywords []string,
) float64 {
	confidence := 0.0

	if len(explicit) > 0 {
		confidence += 0.30
	}

	if intentType != models.IntentUnknown {
		switch intentType {
		case models.IntentPriceCheck, models.IntentTutorial:
			confidence += 0.25
		default:
			confidence += 0.20
		}
	}

	entityCount := 0
	for _, vals := range entities {
		entityCount += len(vals)
	}
	if entityCount > 0 {
		boost := float64(entityCount) * 0.10
		if boost > 0.30 {
			boost = 0.30
		}
		confidence += boost
	}

	if len(keywords) >= 1 {
		confidence += 0.10
		if len(keywords) >= 3 {
			confidence += 0.05
		}
	}

	wordCount := len(strings.Fields(q))
	switch {
	case wordCount >= 3 && wordCount <= 15:
		confidence += 0.10
	case wordCount >= 2:
		confidence += 0.05
	}

	if confidence > 0.98 {
		confidence = 0.98
	}
	return confidence
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func compileGroups(groups map[string][]string) map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(groups))
	for name, patterns := range groups {
		out[name] = compile(patterns...)
	}
	return out
}

func compileIntentGroups(groups map[models.IntentType][]string) map[models.IntentType][]*regexp.Regexp {
	out := make(map[models.IntentType][]*regexp.Regexp, len(groups))
	for it, patterns := range groups {
		out[it] = compile(patterns...)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
