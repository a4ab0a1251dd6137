package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// codeThreshold is deliberately higher than the other agents': the code
// agent only takes queries with a clear technical signal.
const codeThreshold = 0.4

var codeKeywords = []string{
	"repo", "repository", "repositories",
	"code", "project", "projects",
	"library", "libraries", "package",
	"framework", "open source", "stars",
	"github", "implementation",
}

const codeSystemPrompt = `You summarize code-focused search results for
developers: repositories, libraries, frameworks and implementations.

When narrating results:
1. Acknowledge what the user is looking for.
2. Point out the one or two strongest matches and why.
3. Keep it to two to four sentences, technical but plain.

Only describe results that are listed. Never invent repository names.`

// CodeAgent narrates repository and code-focused searches.
type CodeAgent struct {
	model     llms.Model
	modelName string
	logger    logger.Logger
}

func NewCodeAgent(model llms.Model, modelName string, log logger.Logger) *CodeAgent {
	return &CodeAgent{model: model, modelName: modelName, logger: log}
}

func (a *CodeAgent) Kind() models.AgentKind { return models.AgentCode }

// CanHandle favors queries with explicit code signals: the github source,
// code-ish intents, programming entities, repo vocabulary.
func (a *CodeAgent) CanHandle(query string, it models.Intent, sources []string) (float64, bool) {
	confidence := 0.0

	if containsSource(sources, "github") {
		confidence += 0.5
	}
	if it.Type == models.IntentCodeSearch {
		confidence += 0.4
	}
	if it.Type == models.IntentDocumentation {
		confidence += 0.3
	}
	if len(it.Entities["languages"]) > 0 {
		confidence += 0.3
	}
	if len(it.Entities["frameworks"]) > 0 {
		confidence += 0.2
	}

	bonus := float64(countKeywordHits(query, codeKeywords)) * 0.15
	if bonus > 0.4 {
		bonus = 0.4
	}
	confidence += bonus

	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence, confidence > codeThreshold
}

func (a *CodeAgent) Respond(ctx context.Context, query string, it models.Intent, result *models.SearchResult) (*models.AgentResponse, error) {
	content, err := generate(ctx, a.model, codeSystemPrompt, a.userMessage(query, it, result))
	if err != nil {
		return nil, err
	}

	return &models.AgentResponse{
		Kind:             models.AgentCode,
		Narration:        content,
		SuggestedSources: a.suggestedSources(query, it),
		Metadata:         models.AgentMetadata{Model: a.modelName},
	}, nil
}

func (a *CodeAgent) userMessage(query string, it models.Intent, result *models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %s\n", query)
	if langs := it.Entities["languages"]; len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}
	if frameworks := it.Entities["frameworks"]; len(frameworks) > 0 {
		fmt.Fprintf(&b, "Frameworks: %s\n", strings.Join(frameworks, ", "))
	}
	if summary := summarizeResults(result, 5); summary != "" {
		fmt.Fprintf(&b, "\nTop results:\n%s", summary)
	}
	b.WriteString("\nSummarize what was found for the user.")
	return b.String()
}

func (a *CodeAgent) suggestedSources(query string, it models.Intent) []string {
	suggested := []string{"github"}
	if it.Type == models.IntentTutorial || strings.Contains(strings.ToLower(query), "tutorial") {
		suggested = append(suggested, "devto")
	}
	if len(it.Entities["cryptocurrencies"]) > 0 {
		suggested = append(suggested, "crypto")
	}
	if len(it.Entities["stocks"]) > 0 {
		suggested = append(suggested, "stocks")
	}
	return suggested
}
