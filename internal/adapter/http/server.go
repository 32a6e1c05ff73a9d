// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"styleguides/internal/app"
	"styleguides/internal/domain"
	"styleguides/internal/logger"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	sessions      *app.SessionService
	verification  *app.VerificationService
	contributors  *app.ContributorsService
	contributions *app.ContributionService
	users         domain.UserRepository
	audit         domain.AuditLogRepository
	providers     *Providers

	baseURL        string
	exclusionsFile string
	manifestPath   string
	secureCookies  bool

	log *logger.Logger
}

// Options wires a Server. All services are required; providers may have
// zero configured OAuth backends.
type Options struct {
	Sessions      *app.SessionService
	Verification  *app.VerificationService
	Contributors  *app.ContributorsService
	Contributions *app.ContributionService
	Users         domain.UserRepository
	Audit         domain.AuditLogRepository
	Providers     *Providers

	BaseURL        string
	ExclusionsFile string
	ManifestPath   string
	SecureCookies  bool

	Log *logger.Logger
}

// NewServer creates a Server from its options.
func NewServer(opts Options) *Server {
	return &Server{
		sessions:       opts.Sessions,
		verification:   opts.Verification,
		contributors:   opts.Contributors,
		contributions:  opts.Contributions,
		users:          opts.Users,
		audit:          opts.Audit,
		providers:      opts.Providers,
		baseURL:        opts.BaseURL,
		exclusionsFile: opts.ExclusionsFile,
		manifestPath:   opts.ManifestPath,
		secureCookies:  opts.SecureCookies,
		log:            opts.Log,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/login", s.handleLogin)
			auth.Get("/callback/{provider}", s.handleCallback)
			auth.Get("/logout", s.handleLogout)
			auth.Post("/logout", s.handleLogout)
			auth.Get("/session", s.handleSession)
			auth.Get("/verify-email", s.handleVerifyEmail)

			auth.Group(func(priv chi.Router) {
				priv.Use(s.requireUser)
				priv.Post("/resend-verification", s.handleResendVerification)
				priv.Get("/verification-status", s.handleVerificationStatus)
			})
		})

		api.Get("/contributors", s.handleContributors)
		api.Get("/versions", s.handleVersions)
		api.Get("/versions/{slug}", s.handleVersionBySlug)

		api.Route("/contributions", func(c chi.Router) {
			c.Use(s.requireUser)
			c.Use(s.csrfProtect)
			c.Get("/", s.handleListContributions)
			c.Post("/", s.handleCreateDraft)
			c.Put("/{id}", s.handleUpdateDraft)
			c.With(s.requireVerifiedEmail).Post("/{id}/submit", s.handleSubmitContribution)

			c.Group(func(rev chi.Router) {
				rev.Use(s.requireRole(domain.RoleEditor))
				rev.Get("/review/pending", s.handleListPending)
				rev.Post("/review/{id}", s.handleReviewContribution)
			})
		})

		api.Route("/admin", func(adm chi.Router) {
			adm.Use(s.requireUser)
			adm.Use(s.csrfProtect)
			adm.Use(s.requireRole(domain.RoleAdmin))
			adm.Get("/users", s.handleListUsers)
			adm.Post("/users/{id}/block", s.handleBlockUser)
			adm.Post("/users/{id}/unblock", s.handleUnblockUser)
			adm.Post("/users/{id}/role", s.handleSetRole)
			adm.Get("/audit", s.handleAuditLog)
		})
	})

	return r
}
