package adapthttp

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"styleguides/internal/app"
	"styleguides/internal/domain"
)

type contributionJSON struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Filename    string     `json:"filename"`
	Content     string     `json:"content,omitempty"`
	Status      string     `json:"status"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
}

func toContributionJSON(c *domain.Contribution, includeContent bool) contributionJSON {
	out := contributionJSON{
		ID:          c.ID,
		Title:       c.Title,
		Filename:    c.Filename,
		Status:      string(c.Status),
		ReviewNotes: c.ReviewNotes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		SubmittedAt: c.SubmittedAt,
		ReviewedAt:  c.ReviewedAt,
	}
	if includeContent {
		out.Content = c.Content
	}
	return out
}

type draftRequest struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (d *draftRequest) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(d.Filename) == "" || !strings.HasSuffix(d.Filename, ".md") {
		return errors.New("filename must be a markdown file")
	}
	if strings.TrimSpace(d.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user := userFrom(r.Context())
	c, err := s.contributions.CreateDraft(r.Context(), user.ID, req.Title, req.Filename, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionJSON(c, true))
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user := userFrom(r.Context())
	c, err := s.contributions.UpdateDraft(r.Context(), user.ID, chi.URLParam(r, "id"), req.Title, req.Filename, req.Content)
	if err != nil {
		s.writeContributionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionJSON(c, true))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	list, err := s.contributions.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]contributionJSON, 0, len(list))
	for _, c := range list {
		out = append(out, toContributionJSON(c, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contributions": out})
}

func (s *Server) handleSubmitContribution(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	c, err := s.contributions.Submit(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeContributionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionJSON(c, false))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	list, err := s.contributions.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]contributionJSON, 0, len(list))
	for _, c := range list {
		out = append(out, toContributionJSON(c, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contributions": out})
}

func (s *Server) handleReviewContribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reviewer := userFrom(r.Context())
	c, err := s.contributions.Review(r.Context(), reviewer, chi.URLParam(r, "id"), req.Approve, req.Notes)
	if err != nil {
		s.writeContributionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionJSON(c, false))
}

func (s *Server) writeContributionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrContributionNotFound):
		writeErrorCode(w, http.StatusNotFound, "contribution_not_found")
	case errors.Is(err, app.ErrNotContributionOwner):
		writeErrorCode(w, http.StatusForbidden, "not_owner")
	case errors.Is(err, app.ErrInvalidTransition):
		writeErrorCode(w, http.StatusConflict, "invalid_status")
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
