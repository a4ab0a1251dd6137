// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	SearchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "search_request_duration_seconds",
			Help: "End-to-end duration of a search request in seconds",
		},
		[]string{"intent"},
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "source_fetch_duration_seconds",
			Help: "Duration of a single source fetch in seconds",
		},
		[]string{"source"},
	)

	SourceFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_failures_total",
			Help: "Total number of failed source fetches by source and kind",
		},
		[]string{"source", "kind"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_quota_rejections_total",
			Help: "Requests rejected by rate limiting, by scope",
		},
		[]string{"scope"},
	)

	AgentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_fallbacks_total",
			Help: "Narration attempts that fell through to another agent",
		},
		[]string{"from", "to"},
	)

	ActiveSearches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_requests_active",
			Help: "Number of search requests currently in flight",
		},
	)
)
