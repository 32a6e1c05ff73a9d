package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"styleguides/internal/domain"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":            u.ID,
			"email":         u.Email,
			"name":          u.Name,
			"provider":      u.Provider,
			"role":          u.Role,
			"blocked":       u.Blocked,
			"emailVerified": u.EmailVerified,
			"createdAt":     u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, true)
}

func (s *Server) handleUnblockUser(w http.ResponseWriter, r *http.Request) {
	s.setBlocked(w, r, false)
}

func (s *Server) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	admin := userFrom(r.Context())
	targetID := chi.URLParam(r, "id")

	if targetID == admin.ID {
		writeErrorCode(w, http.StatusBadRequest, "cannot_modify_self")
		return
	}

	if err := s.contributions.SetUserBlocked(r.Context(), admin, targetID, blocked); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !domain.ValidRole(req.Role) {
		writeErrorCode(w, http.StatusBadRequest, "invalid_role")
		return
	}

	admin := userFrom(r.Context())
	targetID := chi.URLParam(r, "id")
	if targetID == admin.ID {
		writeErrorCode(w, http.StatusBadRequest, "cannot_modify_self")
		return
	}

	if err := s.contributions.SetUserRole(r.Context(), admin, targetID, domain.Role(req.Role)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.audit.ListRecent(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":        e.ID,
			"userId":    e.UserID,
			"action":    e.Action,
			"targetId":  e.TargetID,
			"details":   e.Details,
			"createdAt": e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
