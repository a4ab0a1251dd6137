// Package source defines the adapter seam between the orchestrator and
// external content providers, plus the concrete adapters.
package source

import (
	"context"
	stderrors "errors"
	"net"

	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/models"
)

// Adapter wraps one external provider behind a uniform search interface.
// Implementations must be safe for concurrent use.
type Adapter interface {
	Name() string
	Capabilities() Capabilities
	Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]models.RawItem, error)
}

// Capabilities describes what an adapter supports, so the orchestrator
// can clamp limits and drop unsupported filters instead of guessing.
type Capabilities struct {
	Category     string   // repository, article, discussion, market
	Filters      []string // filter keys the adapter understands
	SupportsSort bool
	MaxLimit     int
}

// classifyFetchError maps a transport failure to a SourceError kind.
func classifyFetchError(sourceName string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewSourceError(sourceName, errors.SourceTimeout, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewSourceError(sourceName, errors.SourceTimeout, err)
	}
	return errors.NewSourceError(sourceName, errors.SourceUnavailable, err)
}

// classifyStatus maps a non-200 response to a SourceError kind.
func classifyStatus(sourceName string, statusCode int) error {
	if statusCode == 429 {
		return errors.NewSourceError(sourceName, errors.SourceRateLimited, nil)
	}
	return errors.NewSourceError(sourceName, errors.SourceUnavailable, nil)
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}

func stringFilter(filters map[string]interface{}, key string) string {
	if v, ok := filters[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intFilter(filters map[string]interface{}, key string, fallback int) int {
	if v, ok := filters[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return fallback
}
