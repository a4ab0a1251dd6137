// internal/source/github.go
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

// GitHubAdapter searches repositories through the GitHub search API.
type GitHubAdapter struct {
	cfg    config.GitHubConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewGitHubAdapter(cfg config.GitHubConfig, client *httpclient.Client, log logger.Logger) *GitHubAdapter {
	return &GitHubAdapter{cfg: cfg, client: client, logger: log}
}

func (a *GitHubAdapter) Name() string { return "github" }

func (a *GitHubAdapter) Capabilities() Capabilities {
	return Capabilities{
		Category:     "repository",
		Filters:      []string{"language", "min_stars", "sort"},
		SupportsSort: true,
		MaxLimit:     100,
	}
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	HTMLURL     string   `json:"html_url"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Topics      []string `json:"topics"`
	UpdatedAt   string   `json:"updated_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (a *GitHubAdapter) Search(ctx context.Context, query string, limit int, filters map[string]interface{}) ([]models.RawItem, error) {
	limit = clampLimit(limit, a.Capabilities().MaxLimit)

	minStars := intFilter(filters, "min_stars", a.cfg.MinStars)
	sortBy := stringFilter(filters, "sort")
	if sortBy == "" {
		sortBy = "stars"
	}

	searchQuery := fmt.Sprintf("%s stars:>%d", query, minStars)
	if language := stringFilter(filters, "language"); language != "" {
		searchQuery += " language:" + language
	}

	params := url.Values{}
	params.Set("q", searchQuery)
	params.Set("sort", sortBy)
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(limit))

	req, err := http.NewRequest(http.MethodGet, a.cfg.BaseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if a.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+a.cfg.Token)
	}

	resp, err := a.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, classifyFetchError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(a.Name(), resp.StatusCode)
	}

	var body githubSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.NewSourceError(a.Name(), errors.SourceInvalidResponse, err)
	}

	items := make([]models.RawItem, 0, len(body.Items))
	for _, repo := range body.Items {
		if repo.Name == "" || repo.HTMLURL == "" {
			a.logger.Debug("skipping malformed github record", map[string]interface{}{
				"id": repo.ID,
			})
			continue
		}

		// Repositories rank by last activity, not creation date.
		updatedAt, _ := time.Parse(time.RFC3339, repo.UpdatedAt)

		items = append(items, models.RawItem{
			Source:    a.Name(),
			ID:        strconv.FormatInt(repo.ID, 10),
			Title:     repo.Name,
			URL:       repo.HTMLURL,
			Body:      repo.Description,
			Author:    repo.Owner.Login,
			Tags:      repo.Topics,
			CreatedAt: updatedAt,
			Metadata: map[string]interface{}{
				"category":   "repository",
				"full_name":  repo.FullName,
				"language":   repo.Language,
				"stars":      repo.Stars,
				"forks":      repo.Forks,
				"popularity": float64(repo.Stars),
			},
		})
	}

	a.logger.Debug("github search complete", map[string]interface{}{
		"query": query,
		"items": len(items),
	})
	return items, nil
}
