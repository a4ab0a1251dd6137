// internal/models/agent.go
package models

// AgentKind identifies one of the narration strategies.
type AgentKind string

const (
	AgentConversation AgentKind = "conversation"
	AgentCode         AgentKind = "code"
	AgentSearch       AgentKind = "search"
)

// AgentDecision is the router's choice of primary agent plus an ordered
// fallback chain. The chain never repeats the primary.
type AgentDecision struct {
	Primary       AgentKind   `json:"primary"`
	FallbackChain []AgentKind `json:"fallback_chain"`
	Reasoning     string      `json:"reasoning"`
	Confidence    float64     `json:"confidence"`
}

// AgentResponse is the narration produced by one agent. Narration is
// best-effort: a nil AgentResponse on a SearchResult means every agent in the
// chain failed and the caller still has the retrieval results.
type AgentResponse struct {
	Kind                   AgentKind     `json:"kind"`
	Narration              string        `json:"narration"`
	RequiresClarification  bool          `json:"requires_clarification"`
	ClarificationQuestions []string      `json:"clarification_questions,omitempty"`
	SuggestedSources       []string      `json:"suggested_sources,omitempty"`
	Metadata               AgentMetadata `json:"metadata"`
}

// AgentMetadata records which backend produced the narration and how long
// the call took.
type AgentMetadata struct {
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}
