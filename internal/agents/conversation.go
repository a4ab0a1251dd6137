package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

const maxClarificationQuestions = 3

// conversationThreshold is the minimum fitness before the conversation
// agent volunteers for a query.
const conversationThreshold = 0.3

var openEndedPhrases = []string{
	"i want to learn",
	"teach me",
	"help me find",
	"recommend",
	"suggest",
	"what should i",
	"how do i start",
	"where do i begin",
}

const conversationSystemPrompt = `You help developers refine searches across
code repositories, technical articles, discussions and market data.

When the query is vague or open-ended:
1. Ask two or three short clarifying questions.
2. Suggest concrete directions the user might mean.

When the query is already specific:
1. Acknowledge what the user is looking for.
2. Confirm the search that will run.

Keep responses to two to four sentences. Do not invent results.`

// ConversationAgent handles vague and open-ended queries by asking
// clarifying questions instead of fanning out to sources.
type ConversationAgent struct {
	model     llms.Model
	modelName string
	logger    logger.Logger
}

func NewConversationAgent(model llms.Model, modelName string, log logger.Logger) *ConversationAgent {
	return &ConversationAgent{model: model, modelName: modelName, logger: log}
}

func (a *ConversationAgent) Kind() models.AgentKind { return models.AgentConversation }

// CanHandle favors sparse, unclassified, open-ended queries.
func (a *ConversationAgent) CanHandle(query string, it models.Intent, sources []string) (float64, bool) {
	confidence := 0.0

	if len(it.Keywords) < 3 {
		confidence += 0.3
	}
	if it.Type == models.IntentUnknown {
		confidence += 0.4
	}
	if len(sources) == 0 {
		confidence += 0.2
	}

	lowered := strings.ToLower(query)
	for _, phrase := range openEndedPhrases {
		if strings.Contains(lowered, phrase) {
			confidence += 0.3
			break
		}
	}

	if strings.Contains(query, "?") && len(it.Entities) == 0 {
		confidence += 0.2
	}

	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence, confidence > conversationThreshold
}

func (a *ConversationAgent) Respond(ctx context.Context, query string, it models.Intent, _ *models.SearchResult) (*models.AgentResponse, error) {
	content, err := generate(ctx, a.model, conversationSystemPrompt, a.userMessage(query, it))
	if err != nil {
		return nil, err
	}

	questions := extractQuestions(content)

	return &models.AgentResponse{
		Kind:                   models.AgentConversation,
		Narration:              content,
		RequiresClarification:  len(questions) > 0,
		ClarificationQuestions: questions,
		Metadata:               models.AgentMetadata{Model: a.modelName},
	}, nil
}

func (a *ConversationAgent) userMessage(query string, it models.Intent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %s\n", query)
	if it.Type != models.IntentUnknown {
		fmt.Fprintf(&b, "Detected intent: %s\n", it.Type)
	}
	for category, values := range it.Entities {
		fmt.Fprintf(&b, "Entities (%s): %s\n", category, strings.Join(values, ", "))
	}
	if it.TimeSensitive {
		b.WriteString("The user wants recent content.\n")
	}
	b.WriteString("\nHelp the user narrow this down.")
	return b.String()
}

// extractQuestions pulls up to three question sentences out of the reply.
func extractQuestions(content string) []string {
	parts := strings.Split(content, "?")
	if len(parts) < 2 {
		return nil
	}

	var questions []string
	for _, part := range parts[:len(parts)-1] {
		// Keep only the sentence holding the question mark.
		if idx := strings.LastIndexAny(part, ".!\n"); idx >= 0 {
			part = part[idx+1:]
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		questions = append(questions, part+"?")
		if len(questions) == maxClarificationQuestions {
			break
		}
	}
	return questions
}
