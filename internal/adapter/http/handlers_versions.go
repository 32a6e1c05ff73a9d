package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"styleguides/internal/version"
)

type versionSummary struct {
	Slug        string `json:"slug"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	ChangeNotes string `json:"changeNotes"`
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	manifest, err := version.LoadManifest(s.manifestPath)
	if err != nil {
		s.log.Error().Err(err).Msg("load version manifest")
		writeErrorCode(w, http.StatusServiceUnavailable, "versions_unavailable")
		return
	}

	out := make([]versionSummary, 0, len(manifest.Styleguides))
	for _, slug := range manifest.Slugs() {
		e := manifest.Styleguides[slug]
		out = append(out, versionSummary{
			Slug:        slug,
			Filename:    e.Filename,
			Title:       e.Title,
			Version:     e.Version,
			LastUpdated: e.LastUpdated,
			ChangeNotes: e.ChangeNotes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"styleguides": out,
		"schema":      manifest.Schema,
	})
}

func (s *Server) handleVersionBySlug(w http.ResponseWriter, r *http.Request) {
	manifest, err := version.LoadManifest(s.manifestPath)
	if err != nil {
		s.log.Error().Err(err).Msg("load version manifest")
		writeErrorCode(w, http.StatusServiceUnavailable, "versions_unavailable")
		return
	}

	entry := manifest.Entry(chi.URLParam(r, "slug"))
	if entry == nil {
		writeErrorCode(w, http.StatusNotFound, "styleguide_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":    entry.Filename,
		"title":       entry.Title,
		"version":     entry.Version,
		"lastUpdated": entry.LastUpdated,
		"changeNotes": entry.ChangeNotes,
		"history":     entry.SortedHistory(),
	})
}
