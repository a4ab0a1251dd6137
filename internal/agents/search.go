package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/intent"
	"devpulse-search/internal/models"
)

const searchThreshold = 0.3

var searchKeywords = []string{
	"reddit", "hackernews", "hacker news", "hn",
	"devto", "dev.to", "news", "discussion",
	"trending", "popular", "latest",
	"price", "stock", "crypto",
}

var searchFriendlyIntents = map[models.IntentType]struct{}{
	models.IntentNews:       {},
	models.IntentDiscussion: {},
	models.IntentTutorial:   {},
	models.IntentPriceCheck: {},
}

const searchSystemPrompt = `You summarize multi-source search results:
articles, discussions, news and market data.

When narrating results:
1. Acknowledge what the user asked for.
2. Name the sources the results came from.
3. Call out anything time-sensitive, like prices, explicitly.
4. Keep it to two or three sentences.

Only describe results that are listed. Never invent results.`

// SearchAgent narrates multi-source, news and market searches. It is also
// the default when no agent volunteers.
type SearchAgent struct {
	model     llms.Model
	modelName string
	logger    logger.Logger
}

func NewSearchAgent(model llms.Model, modelName string, log logger.Logger) *SearchAgent {
	return &SearchAgent{model: model, modelName: modelName, logger: log}
}

func (a *SearchAgent) Kind() models.AgentKind { return models.AgentSearch }

// CanHandle favors non-github sources, feed-like intents and anything
// time-sensitive.
func (a *SearchAgent) CanHandle(query string, it models.Intent, sources []string) (float64, bool) {
	confidence := 0.0

	for _, s := range sources {
		if s != "github" {
			confidence += 0.5
			break
		}
	}

	if _, ok := searchFriendlyIntents[it.Type]; ok {
		confidence += 0.4
	}
	if len(it.Entities["cryptocurrencies"]) > 0 || len(it.Entities["stocks"]) > 0 {
		confidence += 0.3
	}
	if it.TimeSensitive {
		confidence += 0.2
	}

	bonus := float64(countKeywordHits(query, searchKeywords)) * 0.15
	if bonus > 0.3 {
		bonus = 0.3
	}
	confidence += bonus

	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence, confidence > searchThreshold
}

func (a *SearchAgent) Respond(ctx context.Context, query string, it models.Intent, result *models.SearchResult) (*models.AgentResponse, error) {
	content, err := generate(ctx, a.model, searchSystemPrompt, a.userMessage(query, it, result))
	if err != nil {
		return nil, err
	}

	return &models.AgentResponse{
		Kind:             models.AgentSearch,
		Narration:        content,
		SuggestedSources: intent.ResolveSources(it),
		Metadata:         models.AgentMetadata{Model: a.modelName},
	}, nil
}

func (a *SearchAgent) userMessage(query string, it models.Intent, result *models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %s\n", query)
	fmt.Fprintf(&b, "Intent: %s\n", it.Type)
	if result != nil && len(result.ContributingSources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(result.ContributingSources, ", "))
	}
	if it.TimeSensitive {
		b.WriteString("The user wants fresh content.\n")
	}
	if summary := summarizeResults(result, 5); summary != "" {
		fmt.Fprintf(&b, "\nTop results:\n%s", summary)
	}
	b.WriteString("\nSummarize what was found for the user.")
	return b.String()
}
