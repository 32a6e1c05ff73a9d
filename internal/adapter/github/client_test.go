package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("chrisschwer", "CS-Style-Guides", "", logger.Nop())
	c.SetBaseURL(srv.URL)
	return c
}

func TestClient_ListContributors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/chrisschwer/CS-Style-Guides/contributors" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("unexpected accept header %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 1, "login": "chrisschwer", "avatar_url": "https://a/1", "html_url": "https://g/1", "contributions": 42, "type": "User"},
			{"id": 2, "login": "helper", "avatar_url": "https://a/2", "html_url": "https://g/2", "contributions": 3, "type": "User"}
		]`)
	}))

	got, err := c.ListContributors(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contributors, got %d", len(got))
	}
	want := domain.Contributor{ID: 1, Login: "chrisschwer", AvatarURL: "https://a/1", HTMLURL: "https://g/1", Contributions: 42, Type: "User"}
	if got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got[0])
	}
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))

	_, err := c.GetFileContent(context.Background(), "missing.md")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected domain.ErrNotFound, got %v", err)
	}
}

func TestClient_RateLimitedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		http.Error(w, `{"message": "API rate limit exceeded"}`, http.StatusForbidden)
	}))

	_, err := c.ListContributors(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_ForbiddenWithoutRateLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		http.Error(w, `{"message": "Resource protected"}`, http.StatusForbidden)
	}))

	_, err := c.ListContributors(context.Background())
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Errorf("expected plain HTTP error, got %v", err)
	}
}

func TestClient_GetFileContent(t *testing.T) {
	content := "# Opt-Out\n\n- user1\n"
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/chrisschwer/CS-Style-Guides/contents/OPTOUT.md" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"content": %q, "encoding": "base64"}`, base64.StdEncoding.EncodeToString([]byte(content)))
	}))

	got, err := c.GetFileContent(context.Background(), "OPTOUT.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != content {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestClient_SearchIssues(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/issues" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query().Get("q")
		want := `repo:chrisschwer/CS-Style-Guides is:issue label:"opt-out"`
		if q != want {
			t.Errorf("expected query %q, got %q", want, q)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [
			{"id": 9, "title": "Opt out please", "body": "remove me", "user": {"login": "leaver"}, "labels": [{"name": "opt-out"}]}
		]}`)
	}))

	got, err := c.SearchIssues(context.Background(), `label:"opt-out"`)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(got))
	}
	if got[0].AuthorLogin != "leaver" || got[0].Labels[0] != "opt-out" {
		t.Errorf("unexpected issue %+v", got[0])
	}
}

func TestClient_FirstCommitDate(t *testing.T) {
	newest := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		date := newest
		if r.URL.Query().Get("until") != "" {
			date = oldest
		}
		fmt.Fprintf(w, `[{"sha": "abc", "commit": {"author": {"name": "x", "date": %q}}}]`, date.Format(time.RFC3339))
	}))

	got, err := c.FirstCommitDate(context.Background(), "helper")
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if got == nil || !got.Equal(oldest) {
		t.Errorf("expected %v, got %v", oldest, got)
	}
}

func TestClient_FirstCommitDate_NoCommits(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))

	got, err := c.FirstCommitDate(context.Background(), "ghost")
	if err != nil || got != nil {
		t.Errorf("expected nil date without error, got %v, %v", got, err)
	}
}

func TestClient_RetriesOnServerError(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))

	if _, err := c.ListContributors(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestClient_NoRetryOnNotFound(t *testing.T) {
	attempts := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))

	if _, err := c.GetFileContent(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt on 404, got %d", attempts)
	}
}

func TestClient_RateLimitEndpoint(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rate": {"limit": 60, "remaining": 0, "reset": 1700000000, "used": 60}}`)
	}))

	info, err := c.RateLimit(context.Background())
	if err != nil {
		t.Fatalf("rate limit: %v", err)
	}
	if info.Remaining != 0 || info.Limit != 60 {
		t.Errorf("unexpected info %+v", info)
	}
	if !c.IsRateLimited(context.Background()) {
		t.Error("expected IsRateLimited true")
	}
}
