// internal/source/devto.go
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/errors"
	"devpulse-search/internal/common/httpclient"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/models"
)

// DevToAdapter fetches articles from the Dev.to API. The API has no full
// text search, so the adapter over-fetches the latest articles and keeps
// the ones mentioning any query term; the relevance scorer does the rest.
type DevToAdapter struct {
	cfg    config.DevToConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewDevToAdapter(cfg config.DevToConfig, client *httpclient.Client, log logger.Logger) *DevToAdapter {
	return &DevToAdapter{cfg: cfg, client: client, logger: log}
}

func (a *DevToAdapter) Name() string { return "devto" }

func (a *DevToAdapter) Capabilities() Capabilities {
	return Capabilities{
		Category:     "article",
		Filters:      []string{"tag"},
		SupportsSort: false,
		MaxLimit:     100,
	}
}

type devtoArticle struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Description    string   `json:"description"`
	TagList        []string `json:"tag_list"`
	PublishedAt    string   `json:"published_at"`
	ReactionsCount int      `json:"public_reactions_count"`
	CommentsCount  int      `json:"comments_count"`
	ReadingTime    int      `json:"reading_time_minutes"`
	User           struct {
		Name string `json:"name"`
	} `json:"user"`
}

func (a *DevToAdapter) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]models.RawItem, error) {
	limit = clampLimit(limit, a.Capabilities().MaxLimit)

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(min(limit*3, 100)))
	if tag := stringFilter(filters, "tag"); tag != "" {
		params.Set("tag", tag)
	}

	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"/articles?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceUnavailable, err)
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("api-key", a.cfg.APIKey)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, classifyFetchError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(a.Name(), resp.StatusCode)
	}

	var articles []devtoArticle
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceInvalidResponse, err)
	}

	terms := queryTerms(query)

	items := make([]models.RawItem, 0, len(articles))
	for _, article := range articles {
		if article.Title == "" || article.URL == "" {
			a.logger.Debug("skipping malformed devto record", map[string]interface{}{
				"id": article.ID,
			})
			continue
		}
		if len(terms) > 0 && !mentionsAny(article, terms) {
			continue
		}

		publishedAt, _ := time.Parse(time.RFC3339, article.PublishedAt)

		items = append(items, models.RawItem{
			Source:    a.Name(),
			ID:        strconv.Itoa(article.ID),
			Title:     article.Title,
			URL:       article.URL,
			Body:      truncate(article.Description, 200),
			Author:    article.User.Name,
			Tags:      article.TagList,
			CreatedAt: publishedAt,
			Metadata: map[string]interface{}{
				"category":     "article",
				"reactions":    article.ReactionsCount,
				"comments":     article.CommentsCount,
				"reading_time": article.ReadingTime,
				"popularity":   float64(article.ReactionsCount),
			},
		})
		if len(items) >= limit {
			break
		}
	}

	a.logger.Debug("devto search complete", map[string]interface{}{
		"query": query,
		"items": len(items),
	})
	return items, nil
}

func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}
	return terms
}

func mentionsAny(article devtoArticle, terms []string) bool {
	haystack := strings.ToLower(article.Title + " " + article.Description + " " + strings.Join(article.TagList, " "))
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
