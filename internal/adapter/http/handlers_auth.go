package adapthttp

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"styleguides/internal/app"
	"styleguides/internal/domain"
)

const (
	stateCookieName  = "oauth_state"
	returnCookieName = "return_to"

	stateCookieMaxAge = 300
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(r.URL.Query().Get("provider"))
	if !domain.ValidProvider(string(provider)) || !s.providers.Enabled(provider) {
		writeErrorCode(w, http.StatusBadRequest, "unknown_provider")
		return
	}

	state := generateState()
	// State carries the provider so the callback can double-check which
	// flow it belongs to.
	s.setCookie(w, stateCookieName, state+":"+string(provider), stateCookieMaxAge)

	if returnTo := safeReturnPath(r.URL.Query().Get("return_to")); returnTo != "/" {
		s.setCookie(w, returnCookieName, returnTo, stateCookieMaxAge)
	}

	authURL, err := s.providers.AuthCodeURL(provider, state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(chi.URLParam(r, "provider"))
	if !domain.ValidProvider(string(provider)) {
		writeErrorCode(w, http.StatusBadRequest, "unknown_provider")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != r.URL.Query().Get("state")+":"+string(provider) {
		writeErrorCode(w, http.StatusBadRequest, "invalid_state")
		return
	}
	s.clearCookie(w, stateCookieName)

	identity, err := s.providers.Exchange(r.Context(), provider, r.URL.Query().Get("code"))
	if err != nil {
		s.log.Error().Err(err).Str("provider", string(provider)).Msg("oauth exchange")
		http.Redirect(w, r, s.baseURL+"/?error=login_failed", http.StatusFound)
		return
	}

	user, err := s.users.GetByEmail(r.Context(), identity.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		now := time.Now().UTC()
		user = &domain.User{
			ID:       uuid.NewString(),
			Email:    identity.Email,
			Name:     identity.Name,
			Provider: identity.Provider,
			Role:     domain.DefaultRole,
			// OAuth providers verify email ownership by construction.
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.users.Create(r.Context(), user); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.log.Info().Str("user", user.ID).Str("provider", string(provider)).Msg("user registered")
	}
	if user.Blocked {
		http.Redirect(w, r, s.baseURL+"/?error=account_blocked", http.StatusFound)
		return
	}

	sessionID, err := s.sessions.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	csrf, err := s.sessions.GenerateCSRFToken()
	if err == nil {
		_ = s.sessions.StoreCSRFToken(r.Context(), sessionID, csrf)
	}

	s.setCookie(w, sessionCookieName, sessionID, int(app.SessionTTL.Seconds()))

	returnTo := "/"
	if c, err := r.Cookie(returnCookieName); err == nil {
		returnTo = safeReturnPath(c.Value)
		s.clearCookie(w, returnCookieName)
	}
	http.Redirect(w, r, s.baseURL+returnTo, http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		_ = s.sessions.DeleteSession(r.Context(), cookie.Value)
	}
	s.clearCookie(w, sessionCookieName)

	if r.Method == http.MethodGet {
		http.Redirect(w, r, s.baseURL+"/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	user, err := s.sessions.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	// Sliding expiry: seeing a valid session refreshes it.
	_ = s.sessions.RefreshSession(r.Context(), cookie.Value)

	sess, err := s.sessions.GetSession(r.Context(), cookie.Value)
	csrf := ""
	if err == nil {
		csrf = sess.CSRFToken
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":            user.ID,
			"email":         user.Email,
			"name":          user.Name,
			"role":          user.Role,
			"provider":      user.Provider,
			"emailVerified": user.EmailVerified,
		},
		"csrfToken": csrf,
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, s.baseURL+"/?verification=verification_failed", http.StatusFound)
		return
	}

	_, err := s.verification.MarkEmailAsVerified(r.Context(), token)
	code := "verified"
	switch {
	case err == nil:
	case errors.Is(err, app.ErrTokenExpired):
		code = "token_expired"
	case errors.Is(err, app.ErrTooManyAttempts):
		code = "too_many_attempts"
	default:
		code = "verification_failed"
	}
	http.Redirect(w, r, s.baseURL+"/?verification="+url.QueryEscape(code), http.StatusFound)
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if !s.verification.NeedsEmailVerification(user) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_verified"})
		return
	}

	err := s.verification.SendVerificationEmail(r.Context(), user)
	var rateLimited *app.RateLimitedError
	if errors.As(err, &rateLimited) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "rate_limited",
			"waitMinutes": rateLimited.WaitMinutes,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	status, err := s.verification.Status(r.Context(), user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
