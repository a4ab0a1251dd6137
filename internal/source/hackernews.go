// internal/source/hackernews.go
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/httpclient"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// HackerNewsAdapter searches stories through the Algolia HN API.
type HackerNewsAdapter struct {
	cfg    config.HackerNewsConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewHackerNewsAdapter(cfg config.HackerNewsConfig, client *httpclient.Client, log logger.Logger) *HackerNewsAdapter {
	return &HackerNewsAdapter{cfg: cfg, client: client, logger: log}
}

func (a *HackerNewsAdapter) Name() string { return "hackernews" }

func (a *HackerNewsAdapter) Capabilities() Capabilities {
	return Capabilities{
		Category:     "discussion",
		Filters:      []string{"tags", "min_points"},
		SupportsSort: true,
		MaxLimit:     100,
	}
}

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
}

func (a *HackerNewsAdapter) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]models.RawItem, error) {
	limit = clampLimit(limit, a.Capabilities().MaxLimit)

	tags := stringFilter(filters, "tags")
	if tags == "" {
		tags = "story"
	}
	minPoints := intFilter(filters, "min_points", a.cfg.MinPoints)

	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", tags)
	params.Set("hitsPerPage", strconv.Itoa(limit))
	params.Set("numericFilters", fmt.Sprintf("points>=%d", minPoints))

	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceUnavailable, err)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, classifyFetchError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(a.Name(), resp.StatusCode)
	}

	var body hnSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceInvalidResponse, err)
	}

	items := make([]models.RawItem, 0, len(body.Hits))
	for _, hit := range body.Hits {
		if hit.Title == "" {
			a.logger.Debug("skipping malformed hackernews record", map[string]interface{}{
				"object_id": hit.ObjectID,
			})
			continue
		}

		itemURL := hit.URL
		if itemURL == "" {
			itemURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		createdAt, _ := time.Parse(time.RFC3339, hit.CreatedAt)

		items = append(items, models.RawItem{
			Source:    a.Name(),
			ID:        hit.ObjectID,
			Title:     hit.Title,
			URL:       itemURL,
			Body:      truncate(hit.StoryText, 200),
			Author:    hit.Author,
			CreatedAt: createdAt,
			Metadata: map[string]interface{}{
				"category":   "discussion",
				"points":     hit.Points,
				"comments":   hit.NumComments,
				"popularity": float64(hit.Points),
			},
		})
	}

	a.logger.Debug("hackernews search complete", map[string]interface{}{
		"query": query,
		"items": len(items),
	})
	return items, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
