// Package github implements the driven adapter for the GitHub REST API.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

var (
	// ErrNotFound indicates a 404 from the API. Never retried.
	ErrNotFound = fmt.Errorf("github: %w", domain.ErrNotFound)
	// ErrRateLimited indicates the API rate limit is exhausted.
	ErrRateLimited = errors.New("github: rate limit exceeded")
)

// Retry policy: exponential backoff starting at one second, doubling per
// attempt, applied to 5xx responses and network-level failures only.
const (
	maxRetries     = 3
	retryBaseWait  = 1 * time.Second
	retryMaxWait   = 8 * time.Second
	requestTimeout = 15 * time.Second
)

// RateLimitInfo mirrors the core rate object of GET /rate_limit.
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
	Used      int   `json:"used"`
}

// Client is a GitHub REST v3 client scoped to a single repository.
type Client struct {
	http  *resty.Client
	owner string
	repo  string
	log   *logger.Logger
}

// New creates a client for owner/repo. token may be empty for anonymous
// access (lower rate limits).
func New(owner, repo, token string, log *logger.Logger) *Client {
	httpc := resty.New().
		SetBaseURL("https://api.github.com").
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("User-Agent", "ki-styleguides-website").
		SetTimeout(requestTimeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(retryBaseWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	if token != "" {
		httpc.SetAuthToken(token)
	}

	return &Client{http: httpc, owner: owner, repo: repo, log: log}
}

// Owner returns the repository owner login.
func (c *Client) Owner() string {
	return c.owner
}

// SetBaseURL points the client at a different API host. Intended for tests.
func (c *Client) SetBaseURL(u string) {
	c.http.SetBaseURL(u)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return resp, nil
}

// apiError maps an error response to a typed failure. A 403 with an
// exhausted rate limit is surfaced as ErrRateLimited.
func (c *Client) apiError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case 404:
		return ErrNotFound
	case 403:
		if resp.Header().Get("X-RateLimit-Remaining") == "0" {
			reset := resp.Header().Get("X-RateLimit-Reset")
			return fmt.Errorf("%w (resets at %s)", ErrRateLimited, reset)
		}
	}

	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.Body(), &body)
	if body.Message != "" {
		return fmt.Errorf("github: HTTP %d: %s", resp.StatusCode(), body.Message)
	}
	return fmt.Errorf("github: HTTP %d", resp.StatusCode())
}

type contributorJSON struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
	Contributions int    `json:"contributions"`
	Type          string `json:"type"`
}

// ListContributors returns the repository's contributors.
func (c *Client) ListContributors(ctx context.Context) ([]domain.Contributor, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contributors", c.owner, c.repo), nil)
	if err != nil {
		return nil, err
	}

	var raw []contributorJSON
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("github: decode contributors: %w", err)
	}

	out := make([]domain.Contributor, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Contributor{
			ID:            r.ID,
			Login:         r.Login,
			AvatarURL:     r.AvatarURL,
			HTMLURL:       r.HTMLURL,
			Contributions: r.Contributions,
			Type:          r.Type,
		})
	}
	return out, nil
}

type commitJSON struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// FirstCommitDate returns the author date of the contributor's earliest
// known commit, or nil when none could be determined.
func (c *Client) FirstCommitDate(ctx context.Context, login string) (*time.Time, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits", c.owner, c.repo)

	q := url.Values{}
	q.Set("author", login)
	q.Set("per_page", "1")
	q.Set("page", "1")

	resp, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	var commits []commitJSON
	if err := json.Unmarshal(resp.Body(), &commits); err != nil {
		return nil, fmt.Errorf("github: decode commits: %w", err)
	}
	if len(commits) == 0 {
		return nil, nil
	}
	newest := commits[0].Commit.Author.Date

	// Walk back to the oldest commit at or before the first page's date.
	// Failures here fall back to the newest date found above.
	q = url.Values{}
	q.Set("author", login)
	q.Set("per_page", "1")
	q.Set("until", newest.Format(time.RFC3339))

	resp, err = c.get(ctx, path, q)
	if err == nil {
		var earliest []commitJSON
		if err := json.Unmarshal(resp.Body(), &earliest); err == nil && len(earliest) > 0 {
			d := earliest[len(earliest)-1].Commit.Author.Date
			return &d, nil
		}
	}
	return &newest, nil
}

type issueJSON struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	User  struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// SearchIssues runs an issue search with the given qualifiers appended to a
// repo-scoped query.
func (c *Client) SearchIssues(ctx context.Context, qualifiers string) ([]domain.Issue, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("repo:%s/%s is:issue %s", c.owner, c.repo, qualifiers))

	resp, err := c.get(ctx, "/search/issues", q)
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []issueJSON `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("github: decode issue search: %w", err)
	}

	out := make([]domain.Issue, 0, len(result.Items))
	for _, it := range result.Items {
		labels := make([]string, 0, len(it.Labels))
		for _, l := range it.Labels {
			labels = append(labels, l.Name)
		}
		out = append(out, domain.Issue{
			ID:          it.ID,
			Title:       it.Title,
			Body:        it.Body,
			AuthorLogin: it.User.Login,
			Labels:      labels,
		})
	}
	return out, nil
}

// GetFileContent fetches a repository file via the contents API and decodes
// its base64 payload. Missing paths yield ErrNotFound.
func (c *Client) GetFileContent(ctx context.Context, path string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, path), nil)
	if err != nil {
		return "", err
	}

	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(resp.Body(), &file); err != nil {
		return "", fmt.Errorf("github: decode contents: %w", err)
	}
	if file.Encoding != "base64" {
		return file.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("github: decode base64: %w", err)
	}
	return string(decoded), nil
}

// RateLimit returns the current core rate-limit state, or nil when the
// endpoint is unavailable.
func (c *Client) RateLimit(ctx context.Context) (*RateLimitInfo, error) {
	resp, err := c.get(ctx, "/rate_limit", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Rate RateLimitInfo `json:"rate"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("github: decode rate limit: %w", err)
	}
	return &result.Rate, nil
}

// IsRateLimited reports whether the core rate limit is exhausted. Errors
// degrade to false.
func (c *Client) IsRateLimited(ctx context.Context) bool {
	info, err := c.RateLimit(ctx)
	if err != nil {
		return false
	}
	return info.Remaining == 0
}
