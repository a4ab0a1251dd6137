package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/metrics"
	"devpulse-search/internal/intent"
	"devpulse-search/internal/models"
)

// Searcher is the retrieval dependency of the router. Satisfied by the
// orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string, identity string, opts models.SearchOptions) (models.SearchResult, error)
}

// agentOrder fixes the evaluation order so ties break deterministically.
var agentOrder = []models.AgentKind{
	models.AgentConversation,
	models.AgentCode,
	models.AgentSearch,
}

// Router picks the best-fitting agent for each query and walks the
// fallback chain when agents fail. Retrieval must succeed; narration is
// best-effort and a fully failed chain still returns the ranked results.
type Router struct {
	classifier    *intent.Classifier
	searcher      Searcher
	agents        map[models.AgentKind]Agent
	timeout       time.Duration
	minConfidence float64
	logger        logger.Logger
}

func NewRouter(classifier *intent.Classifier, searcher Searcher, registered []Agent, cfg config.AgentsConfig, log logger.Logger) *Router {
	byKind := make(map[models.AgentKind]Agent, len(registered))
	for _, a := range registered {
		byKind[a.Kind()] = a
	}
	return &Router{
		classifier:    classifier,
		searcher:      searcher,
		agents:        byKind,
		timeout:       time.Duration(cfg.Timeout) * time.Millisecond,
		minConfidence: cfg.MinConfidence,
		logger:        log,
	}
}

// Decide scores every registered agent against the classified query and
// returns the primary plus the ordered fallback chain.
func (r *Router) Decide(query string, it models.Intent, sources []string) models.AgentDecision {
	type candidate struct {
		kind       models.AgentKind
		confidence float64
	}

	var candidates []candidate
	for _, kind := range agentOrder {
		agent, ok := r.agents[kind]
		if !ok {
			continue
		}
		confidence, fits := agent.CanHandle(query, it, sources)
		// An agent must clear both its own threshold and the configured floor.
		if fits && confidence >= r.minConfidence {
			candidates = append(candidates, candidate{kind: kind, confidence: confidence})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	if len(candidates) == 0 {
		// Nobody volunteered; the search agent takes it.
		return models.AgentDecision{
			Primary:       models.AgentSearch,
			FallbackChain: []models.AgentKind{models.AgentConversation},
			Confidence:    0.5,
			Reasoning:     buildReasoning(it, sources, nil, nil),
		}
	}

	chain := make([]models.AgentKind, 0, len(candidates)-1)
	kinds := make([]models.AgentKind, 0, len(candidates))
	scores := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		kinds = append(kinds, c.kind)
		scores = append(scores, c.confidence)
	}
	for _, c := range candidates[1:] {
		chain = append(chain, c.kind)
	}

	return models.AgentDecision{
		Primary:       candidates[0].kind,
		FallbackChain: chain,
		Confidence:    candidates[0].confidence,
		Reasoning:     buildReasoning(it, sources, kinds, scores),
	}
}

// Respond routes one query end to end: classify, decide, retrieve, narrate.
// A conversation-led ambiguous query returns clarification questions
// without touching any source.
func (r *Router) Respond(ctx context.Context, query string, identity string, opts models.SearchOptions) (models.SearchResult, models.AgentDecision, error) {
	it := r.classifier.Classify(query)
	if len(opts.ExplicitSources) > 0 {
		it.ExplicitSources = opts.ExplicitSources
	}
	resolved := intent.ResolveSources(it)
	decision := r.Decide(query, it, resolved)

	chain := append([]models.AgentKind{decision.Primary}, decision.FallbackChain...)

	// Clarification short-circuit. If the conversation agent fails here the
	// query just proceeds to retrieval like any other.
	if decision.Primary == models.AgentConversation {
		resp, err := r.invoke(ctx, models.AgentConversation, query, it, nil)
		switch {
		case err == nil && resp.RequiresClarification:
			skip := opts
			skip.Mode = models.ModeSkipSearch
			result, serr := r.searcher.Search(ctx, query, identity, skip)
			if serr != nil {
				return result, decision, serr
			}
			result.Agent = resp
			return result, decision, nil
		case err == nil:
			result, serr := r.searcher.Search(ctx, query, identity, opts)
			if serr != nil {
				return result, decision, serr
			}
			result.Agent = resp
			return result, decision, nil
		default:
			r.warnAgentFailure(models.AgentConversation, err)
			r.recordFallback(chain, 0)
			chain = chain[1:]
		}
	}

	result, err := r.searcher.Search(ctx, query, identity, opts)
	if err != nil {
		return result, decision, err
	}

	for i, kind := range chain {
		resp, aerr := r.invoke(ctx, kind, query, it, &result)
		if aerr != nil {
			r.warnAgentFailure(kind, aerr)
			r.recordFallback(chain, i)
			continue
		}
		result.Agent = resp
		return result, decision, nil
	}

	// Every agent failed; the ranked results stand on their own.
	r.logger.Warn("all narration agents failed", map[string]interface{}{
		"query":   query,
		"primary": string(decision.Primary),
	})
	return result, decision, nil
}

func (r *Router) invoke(ctx context.Context, kind models.AgentKind, query string, it models.Intent, result *models.SearchResult) (*models.AgentResponse, error) {
	agent, ok := r.agents[kind]
	if !ok {
		return nil, errors.NewAgentFailedError(string(kind), fmt.Errorf("agent not registered"))
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	resp, err := agent.Respond(actx, query, it, result)
	if err != nil {
		if actx.Err() == context.DeadlineExceeded {
			return nil, errors.NewAgentTimeoutError(string(kind))
		}
		return nil, errors.NewAgentFailedError(string(kind), err)
	}

	resp.Metadata.LatencyMS = time.Since(started).Milliseconds()
	return resp, nil
}

func (r *Router) recordFallback(chain []models.AgentKind, failed int) {
	if failed+1 >= len(chain) {
		return
	}
	metrics.AgentFallbacks.WithLabelValues(string(chain[failed]), string(chain[failed+1])).Inc()
}

func (r *Router) warnAgentFailure(kind models.AgentKind, err error) {
	r.logger.Warn("agent failed, trying next in chain", map[string]interface{}{
		"agent": string(kind),
		"error": err.Error(),
	})
}

func buildReasoning(it models.Intent, sources []string, kinds []models.AgentKind, scores []float64) string {
	parts := []string{fmt.Sprintf("intent: %s", it.Type)}

	if len(sources) > 0 {
		parts = append(parts, fmt.Sprintf("sources: %s", strings.Join(sources, ", ")))
	}
	if len(it.Entities) > 0 {
		categories := make([]string, 0, len(it.Entities))
		for category := range it.Entities {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		parts = append(parts, fmt.Sprintf("entities: %s", strings.Join(categories, ", ")))
	}
	if len(kinds) > 0 {
		rendered := make([]string, len(kinds))
		for i, kind := range kinds {
			rendered[i] = fmt.Sprintf("%s=%.2f", kind, scores[i])
		}
		parts = append(parts, fmt.Sprintf("scores: %s", strings.Join(rendered, ", ")))
	} else {
		parts = append(parts, "scores: none, defaulting to search")
	}

	return strings.Join(parts, " | ")
}
