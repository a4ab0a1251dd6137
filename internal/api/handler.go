// Package api is the HTTP entry point. It stays thin: validate the
// request shape, enforce the quota, hand off to the agent router, map
// typed errors onto status codes.
package api

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"devpulse-search/internal/agents"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/observability"
	"devpulse-search/internal/models"
	"devpulse-search/internal/ratelimit"
)

// Responder produces a search result with optional narration. Implemented
// by the agent router; searchOnlyResponder covers deployments without a
// narration backend.
type Responder interface {
	Respond(ctx context.Context, query string, identity string, opts models.SearchOptions) (models.SearchResult, models.AgentDecision, error)
}

// searchOnlyResponder skips narration entirely.
type searchOnlyResponder struct {
	searcher agents.Searcher
}

func (r searchOnlyResponder) Respond(ctx context.Context, query string, identity string, opts models.SearchOptions) (models.SearchResult, models.AgentDecision, error) {
	result, err := r.searcher.Search(ctx, query, identity, opts)
	return result, models.AgentDecision{}, err
}

// NewSearchOnlyResponder wraps the orchestrator for deployments where the
// narration agents are disabled.
func NewSearchOnlyResponder(searcher agents.Searcher) Responder {
	return searchOnlyResponder{searcher: searcher}
}

// searchRequestSchema is the wire contract of POST /v1/search.
var searchRequestSchema = map[string]interface{}{
	"type":                 "object",
	"required":             []interface{}{"query"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"query": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 500,
		},
		"identity": map[string]interface{}{
			"type":      "string",
			"maxLength": 128,
		},
		"limit": map[string]interface{}{
			"type":    "integer",
			"minimum": 1,
			"maximum": 50,
		},
		"sources": map[string]interface{}{
			"type":     "array",
			"maxItems": 6,
			"items":    map[string]interface{}{"type": "string"},
		},
		"mode": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"search", "skip_search"},
		},
	},
}

type searchRequest struct {
	Query    string   `json:"query"`
	Identity string   `json:"identity"`
	Limit    int      `json:"limit"`
	Sources  []string `json:"sources"`
	Mode     string   `json:"mode"`
}

type responseMetadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type searchResponse struct {
	RequestID string                `json:"request_id"`
	Status    string                `json:"status"`
	Data      models.SearchResult   `json:"data"`
	Routing   *models.AgentDecision `json:"routing,omitempty"`
	Metadata  responseMetadata      `json:"metadata"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	ResetAt string `json:"reset_at,omitempty"`
}

type errorResponse struct {
	RequestID string           `json:"request_id"`
	Status    string           `json:"status"`
	Error     errorBody        `json:"error"`
	Metadata  responseMetadata `json:"metadata"`
}

// Handler serves the search API.
type Handler struct {
	responder Responder
	limiter   *ratelimit.Limiter
	obs       *observability.Observability
	schema    *gojsonschema.Schema
	version   string
	logger    logger.Logger
}

func NewHandler(responder Responder, limiter *ratelimit.Limiter, obs *observability.Observability, version string, log logger.Logger) (*Handler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(searchRequestSchema))
	if err != nil {
		return nil, err
	}
	return &Handler{
		responder: responder,
		limiter:   limiter,
		obs:       obs,
		schema:    schema,
		version:   version,
		logger:    log,
	}, nil
}

// Routes wires the handler's endpoints onto a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", h.HandleSearch)
	mux.HandleFunc("/v1/health", h.HandleHealth)
	return mux
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	started := time.Now()

	if r.Method != http.MethodPost {
		h.writeError(w, requestID, http.StatusMethodNotAllowed, errorBody{
			Code:    string(errors.ErrCodeInvalidRequest),
			Message: "Only POST is supported",
		})
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, requestID, http.StatusBadRequest, errorBody{
			Code:    string(errors.ErrCodeInvalidRequest),
			Message: "Request body is not valid JSON",
			Details: err.Error(),
		})
		return
	}

	if details, ok := h.validate(raw); !ok {
		h.writeError(w, requestID, http.StatusBadRequest, errorBody{
			Code:    string(errors.ErrCodeInvalidRequest),
			Message: "Request failed schema validation",
			Details: details,
		})
		return
	}

	var req searchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.writeError(w, requestID, http.StatusBadRequest, errorBody{
			Code:    string(errors.ErrCodeInvalidRequest),
			Message: "Request body could not be decoded",
			Details: err.Error(),
		})
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = r.Header.Get("X-Identity")
	}
	if identity == "" {
		identity = "anonymous"
	}

	log := h.logger.With(map[string]interface{}{
		"request_id": requestID,
		"identity":   identity,
	})

	if err := h.limiter.Allow(r.Context(), identity); err != nil {
		h.writeQuotaError(w, requestID, identity, err, log)
		return
	}

	opts := models.SearchOptions{
		ExplicitSources: req.Sources,
		Limit:           req.Limit,
		Mode:            models.SearchMode(req.Mode),
	}

	result, decision, err := h.responder.Respond(r.Context(), req.Query, identity, opts)
	if err != nil {
		h.writeSearchError(w, requestID, err, log)
		h.obs.RecordSearchProcessed(r.Context(), string(result.Intent.Type), "error")
		return
	}

	h.obs.RecordSearchProcessed(r.Context(), string(result.Intent.Type), "success")
	h.obs.RecordSearchDuration(r.Context(), time.Since(started), string(result.Intent.Type))
	for _, name := range result.ContributingSources {
		h.obs.RecordSourceFetch(r.Context(), name, "success")
	}

	log.Info("search completed", map[string]interface{}{
		"intent":    string(result.Intent.Type),
		"items":     len(result.Items),
		"cache_hit": result.CacheHit,
		"took_ms":   time.Since(started).Milliseconds(),
	})

	resp := searchResponse{
		RequestID: requestID,
		Status:    "success",
		Data:      result,
		Metadata: responseMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
		},
	}
	if decision.Primary != "" {
		resp.Routing = &decision
	}
	writeJSON(w, http.StatusOK, resp)
}

// validate checks the raw body against the request schema. Returns the
// joined violation descriptions on failure.
func (h *Handler) validate(raw json.RawMessage) (string, bool) {
	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return err.Error(), false
	}
	if result.Valid() {
		return "", true
	}
	details := ""
	for i, desc := range result.Errors() {
		if i > 0 {
			details += "; "
		}
		details += desc.String()
	}
	return details, false
}

func (h *Handler) writeQuotaError(w http.ResponseWriter, requestID, identity string, err error, log logger.Logger) {
	var (
		status = http.StatusTooManyRequests
		body   errorBody
	)

	switch {
	case errors.IsQuotaExceeded(err):
		var q *errors.QuotaExceededError
		goerrors.As(err, &q)
		body = errorBody{
			Code:    string(errors.ErrCodeQuotaExceeded),
			Message: "Daily search quota exhausted for this identity",
			ResetAt: q.ResetAt.UTC().Format(time.RFC3339),
		}
		w.Header().Set("Retry-After", retryAfterSeconds(q.ResetAt))
	case errors.IsCapacityExceeded(err):
		var c *errors.CapacityExceededError
		goerrors.As(err, &c)
		status = http.StatusServiceUnavailable
		body = errorBody{
			Code:    string(errors.ErrCodeCapacityExceeded),
			Message: "The service is at its daily capacity",
			ResetAt: c.ResetAt.UTC().Format(time.RFC3339),
		}
		w.Header().Set("Retry-After", retryAfterSeconds(c.ResetAt))
	default:
		status = http.StatusInternalServerError
		body = errorBody{
			Code:    string(errors.ErrCodeCapacityExceeded),
			Message: "Rate limit check failed",
			Details: err.Error(),
		}
	}

	log.Warn("request rejected by rate limiter", map[string]interface{}{
		"identity": identity,
		"code":     body.Code,
	})
	h.writeError(w, requestID, status, body)
}

func (h *Handler) writeSearchError(w http.ResponseWriter, requestID string, err error, log logger.Logger) {
	status := http.StatusInternalServerError
	body := errorBody{
		Code:    "INTERNAL",
		Message: "Search failed",
		Details: err.Error(),
	}

	if se, ok := err.(*errors.StandardError); ok {
		body.Code = string(se.Code)
		body.Message = se.Message
		body.Details = se.Details
		if se.Code == errors.ErrCodeInvalidRequest {
			status = http.StatusBadRequest
		}
	}

	log.WithError(err).Error("search failed", nil)
	h.writeError(w, requestID, status, body)
}

func (h *Handler) writeError(w http.ResponseWriter, requestID string, status int, body errorBody) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Status:    "error",
		Error:     body,
		Metadata: responseMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func retryAfterSeconds(resetAt time.Time) string {
	seconds := int(time.Until(resetAt).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.Itoa(seconds)
}
