// Package agents turns ranked search results into short natural-language
// responses. Narration is best-effort: retrieval never waits on, and never
// fails because of, an agent.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/models"
)

// Agent is one narration strategy. CanHandle scores how well the agent fits
// a classified query; Respond produces the narration for it.
type Agent interface {
	Kind() models.AgentKind
	// CanHandle returns the agent's fitness for the query and whether it
	// clears the agent's own minimum. sources is the resolved source set.
	CanHandle(query string, it models.Intent, sources []string) (float64, bool)
	Respond(ctx context.Context, query string, it models.Intent, result *models.SearchResult) (*models.AgentResponse, error)
}

// NewModel builds the chat client shared by the narration agents. An empty
// token falls back to "none" for local OpenAI-compatible endpoints.
func NewModel(cfg config.AgentsConfig) (llms.Model, error) {
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

// generate runs one system+user exchange and returns the trimmed reply.
func generate(ctx context.Context, model llms.Model, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	resp, err := model.GenerateContent(ctx, content, llms.WithTemperature(0.7), llms.WithMaxTokens(1024))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// summarizeResults renders the top results for inclusion in a prompt.
func summarizeResults(result *models.SearchResult, max int) string {
	if result == nil || len(result.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range result.Items {
		if i == max {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s) %s\n", i+1, item.Title, item.Source, item.URL)
	}
	return b.String()
}

func containsSource(sources []string, name string) bool {
	for _, s := range sources {
		if s == name {
			return true
		}
	}
	return false
}

func countKeywordHits(query string, keywords []string) int {
	lowered := strings.ToLower(query)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			hits++
		}
	}
	return hits
}
