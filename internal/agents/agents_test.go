// internal/agents/agents_test.go
package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/intent"
	"devpulse-search/internal/models"
)

// stubModel scripts the chat backend.
type stubModel struct {
	reply string
	err   error
	calls int
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

// stubSearcher records every retrieval call.
type stubSearcher struct {
	result models.SearchResult
	err    error
	modes  []models.SearchMode
}

func (s *stubSearcher) Search(ctx context.Context, query, identity string, opts models.SearchOptions) (models.SearchResult, error) {
	s.modes = append(s.modes, opts.Mode)
	if s.err != nil {
		return models.SearchResult{}, s.err
	}
	return s.result, nil
}

func classify(query string) (models.Intent, []string) {
	it := intent.NewClassifier().Classify(query)
	return it, intent.ResolveSources(it)
}

func newTestRouter(t *testing.T, searcher Searcher, conversation, code, search llms.Model) *Router {
	log := logger.NewTestLogger(t)
	registered := []Agent{
		NewConversationAgent(conversation, "test-model", log),
		NewCodeAgent(code, "test-model", log),
		NewSearchAgent(search, "test-model", log),
	}
	cfg := config.AgentsConfig{Enabled: true, Model: "test-model", Timeout: 1000, MinConfidence: 0.3}
	return NewRouter(intent.NewClassifier(), searcher, registered, cfg, log)
}

func rankedResult() models.SearchResult {
	return models.SearchResult{
		Items: []models.ScoredItem{
			{RawItem: models.RawItem{Source: "devto", ID: "1", Title: "Python tutorials", URL: "https://dev.to/a/b"}, Relevance: 80, Rank: 1},
		},
		ContributingSources: []string{"devto"},
	}
}

// ==========================================
// CanHandle heuristics
// ==========================================

func TestConversationAgent_CanHandle_VagueQuery(t *testing.T) {
	agent := NewConversationAgent(&stubModel{}, "test-model", logger.NewTestLogger(t))

	it, sources := classify("help me find something good?")
	confidence, fits := agent.CanHandle("help me find something good?", it, sources)

	assert.True(t, fits)
	assert.GreaterOrEqual(t, confidence, 0.9)
}

func TestConversationAgent_CanHandle_SpecificQuery(t *testing.T) {
	agent := NewConversationAgent(&stubModel{}, "test-model", logger.NewTestLogger(t))

	it, sources := classify("python tutorials")
	_, fits := agent.CanHandle("python tutorials", it, sources)

	assert.False(t, fits)
}

func TestCodeAgent_CanHandle_RepositoryQuery(t *testing.T) {
	agent := NewCodeAgent(&stubModel{}, "test-model", logger.NewTestLogger(t))

	it, sources := classify("golang web framework repositories on github")
	confidence, fits := agent.CanHandle("golang web framework repositories on github", it, sources)

	assert.True(t, fits)
	assert.GreaterOrEqual(t, confidence, 0.9)
}

func TestSearchAgent_CanHandle_PriceCheck(t *testing.T) {
	agent := NewSearchAgent(&stubModel{}, "test-model", logger.NewTestLogger(t))

	it, sources := classify("bitcoin price today")
	confidence, fits := agent.CanHandle("bitcoin price today", it, sources)

	assert.True(t, fits)
	assert.GreaterOrEqual(t, confidence, 0.9)
}

// ==========================================
// Routing decision
// ==========================================

func TestDecide_TutorialPrefersSearchThenCode(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{}, &stubModel{}, &stubModel{}, &stubModel{})

	it, sources := classify("python tutorials")
	decision := router.Decide("python tutorials", it, sources)

	assert.Equal(t, models.AgentSearch, decision.Primary)
	assert.Equal(t, []models.AgentKind{models.AgentCode}, decision.FallbackChain)
	assert.NotContains(t, decision.FallbackChain, decision.Primary)
	assert.Contains(t, decision.Reasoning, "intent: tutorial")
}

func TestDecide_VagueQueryPrefersConversation(t *testing.T) {
	router := newTestRouter(t, &stubSearcher{}, &stubModel{}, &stubModel{}, &stubModel{})

	it, sources := classify("help me find something good?")
	decision := router.Decide("help me find something good?", it, sources)

	assert.Equal(t, models.AgentConversation, decision.Primary)
}

func TestDecide_NoVolunteerDefaultsToSearch(t *testing.T) {
	// Only a code agent registered, query with zero code signal.
	log := logger.NewTestLogger(t)
	router := NewRouter(
		intent.NewClassifier(),
		&stubSearcher{},
		[]Agent{NewCodeAgent(&stubModel{}, "test-model", log)},
		config.AgentsConfig{Timeout: 1000},
		log,
	)

	it, sources := classify("bitcoin price today")
	decision := router.Decide("bitcoin price today", it, sources)

	assert.Equal(t, models.AgentSearch, decision.Primary)
	assert.Equal(t, 0.5, decision.Confidence)
}

// ==========================================
// Respond pipeline
// ==========================================

func TestRespond_ClarificationShortCircuitsRetrieval(t *testing.T) {
	conversation := &stubModel{reply: "What topic interests you? Do you prefer articles or code?"}
	searcher := &stubSearcher{result: models.SearchResult{Intent: models.Intent{Type: models.IntentUnknown}}}

	router := newTestRouter(t, searcher, conversation, &stubModel{}, &stubModel{})

	result, decision, err := router.Respond(context.Background(), "help me find something good?", "user-1", models.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, models.AgentConversation, decision.Primary)
	require.NotNil(t, result.Agent)
	assert.True(t, result.Agent.RequiresClarification)
	assert.Len(t, result.Agent.ClarificationQuestions, 2)
	// The only retrieval call skips the source fan-out.
	require.Len(t, searcher.modes, 1)
	assert.Equal(t, models.ModeSkipSearch, searcher.modes[0])
}

func TestRespond_ConversationWithoutQuestionsStillSearches(t *testing.T) {
	conversation := &stubModel{reply: "Sounds like you are after beginner material. Searching now."}
	searcher := &stubSearcher{result: rankedResult()}

	router := newTestRouter(t, searcher, conversation, &stubModel{}, &stubModel{})

	result, _, err := router.Respond(context.Background(), "help me find something good?", "user-1", models.SearchOptions{})

	require.NoError(t, err)
	require.NotNil(t, result.Agent)
	assert.Equal(t, models.AgentConversation, result.Agent.Kind)
	assert.False(t, result.Agent.RequiresClarification)
	require.Len(t, searcher.modes, 1)
	assert.Equal(t, models.SearchMode(""), searcher.modes[0])
	assert.NotEmpty(t, result.Items)
}

func TestRespond_NarrationAttachedToResults(t *testing.T) {
	search := &stubModel{reply: "Found fresh Python tutorials on dev.to."}
	searcher := &stubSearcher{result: rankedResult()}

	router := newTestRouter(t, searcher, &stubModel{}, &stubModel{}, search)

	result, decision, err := router.Respond(context.Background(), "python tutorials", "user-1", models.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, models.AgentSearch, decision.Primary)
	require.NotNil(t, result.Agent)
	assert.Equal(t, models.AgentSearch, result.Agent.Kind)
	assert.Equal(t, "Found fresh Python tutorials on dev.to.", result.Agent.Narration)
	assert.Equal(t, "test-model", result.Agent.Metadata.Model)
}

func TestRespond_FallsBackWhenPrimaryFails(t *testing.T) {
	search := &stubModel{err: fmt.Errorf("backend down")}
	code := &stubModel{reply: "The top match is a tutorial collection."}
	searcher := &stubSearcher{result: rankedResult()}

	router := newTestRouter(t, searcher, &stubModel{}, code, search)

	result, _, err := router.Respond(context.Background(), "python tutorials", "user-1", models.SearchOptions{})

	require.NoError(t, err)
	require.NotNil(t, result.Agent)
	assert.Equal(t, models.AgentCode, result.Agent.Kind)
	assert.Equal(t, 1, search.calls)
	assert.Equal(t, 1, code.calls)
}

func TestRespond_AllAgentsFailedKeepsResults(t *testing.T) {
	broken := fmt.Errorf("backend down")
	searcher := &stubSearcher{result: rankedResult()}

	router := newTestRouter(t, searcher, &stubModel{err: broken}, &stubModel{err: broken}, &stubModel{err: broken})

	result, _, err := router.Respond(context.Background(), "python tutorials", "user-1", models.SearchOptions{})

	require.NoError(t, err)
	assert.Nil(t, result.Agent)
	assert.NotEmpty(t, result.Items)
}

// ==========================================
// Conversation parsing
// ==========================================

func TestConversationAgent_CapsClarificationQuestions(t *testing.T) {
	model := &stubModel{reply: "A few things first. Which language? What level? Videos or text? Paid or free?"}
	agent := NewConversationAgent(model, "test-model", logger.NewTestLogger(t))

	resp, err := agent.Respond(context.Background(), "help me find something good?", models.Intent{Type: models.IntentUnknown}, nil)

	require.NoError(t, err)
	assert.True(t, resp.RequiresClarification)
	assert.Equal(t, []string{"Which language?", "What level?", "Videos or text?"}, resp.ClarificationQuestions)
}

func TestCodeAgent_SuggestsTutorialSources(t *testing.T) {
	agent := NewCodeAgent(&stubModel{reply: "ok"}, "test-model", logger.NewTestLogger(t))

	it, _ := classify("python tutorials")
	resp, err := agent.Respond(context.Background(), "python tutorials", it, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"github", "devto"}, resp.SuggestedSources)
}
