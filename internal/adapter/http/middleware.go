package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"styleguides/internal/app"
	"styleguides/internal/domain"
)

type contextKey string

const (
	userContextKey    contextKey = "user"
	sessionContextKey contextKey = "session"
)

const sessionCookieName = "session"

// userFrom returns the authenticated user placed in the context by
// requireUser.
func userFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey).(string)
	return id
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// requireUser resolves the session cookie to a user and stores both in the
// request context. Blocked accounts get 403, everything else missing gets
// 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := s.sessions.CurrentUser(r.Context(), cookie.Value)
		if errors.Is(err, app.ErrUserBlocked) {
			writeErrorCode(w, http.StatusForbidden, "account_blocked")
			return
		}
		if errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrUserNotFound) {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err != nil {
			writeErrorCode(w, http.StatusInternalServerError, "internal_error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, sessionContextKey, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireVerifiedEmail rejects users who still need to verify their email.
func (s *Server) requireVerifiedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if user == nil {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if s.verification.NeedsEmailVerification(user) {
			writeErrorCode(w, http.StatusForbidden, "email_not_verified")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole enforces the admin > editor > contributor hierarchy.
func (s *Server) requireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFrom(r.Context())
			if user == nil {
				writeErrorCode(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !user.HasRole(role) {
				writeErrorCode(w, http.StatusForbidden, "insufficient_role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// csrfProtect validates the X-CSRF-Token header on mutating requests.
// Requires requireUser earlier in the chain.
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		sessionID := sessionIDFrom(r.Context())
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue("csrf_token")
		}
		if sessionID == "" || !s.sessions.ValidateCSRFToken(r.Context(), sessionID, token) {
			writeErrorCode(w, http.StatusForbidden, "invalid_csrf_token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
