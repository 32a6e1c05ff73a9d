package adapthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"styleguides/internal/adapter/mail"
	"styleguides/internal/adapter/memory"
	"styleguides/internal/app"
	"styleguides/internal/domain"
	"styleguides/internal/logger"
	"styleguides/internal/version"
)

type stubGitHub struct{}

func (stubGitHub) Owner() string { return "chrisschwer" }

func (stubGitHub) ListContributors(ctx context.Context) ([]domain.Contributor, error) {
	return []domain.Contributor{
		{ID: 1, Login: "chrisschwer", Contributions: 42},
		{ID: 2, Login: "helper", Contributions: 3},
	}, nil
}

func (stubGitHub) FirstCommitDate(ctx context.Context, login string) (*time.Time, error) {
	return nil, nil
}

func (stubGitHub) SearchIssues(ctx context.Context, qualifiers string) ([]domain.Issue, error) {
	return nil, nil
}

func (stubGitHub) GetFileContent(ctx context.Context, path string) (string, error) {
	return "", domain.ErrNotFound
}

type fixture struct {
	handler      http.Handler
	db           *memory.DB
	sessions     *app.SessionService
	verification *app.VerificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	db := memory.New()
	cdb := memory.NewContributionDB()

	sessions := app.NewSessionService(db.Sessions(), db.Users(), log)
	verification := app.NewVerificationService(db.Tokens(), db.RateLimits(), db.Users(), mail.NewLogOnly(log), "http://localhost:8080", log)
	contributors := app.NewContributorsService(stubGitHub{}, nil, 0, log)
	contributions := app.NewContributionService(cdb.Contributions(), db.Users(), cdb.AuditLogs(), log)

	manifestPath := filepath.Join(t.TempDir(), "versions.json")
	manifest := &version.Manifest{
		Styleguides: map[string]*version.Entry{
			"python-styleguide": version.NewEntry("Python Styleguide.md", "Python Styleguide", "1.2.0", "Content additions"),
		},
		Schema: version.Schema{Version: "1.0.0"},
	}
	if err := manifest.Save(manifestPath); err != nil {
		t.Fatal(err)
	}

	server := NewServer(Options{
		Sessions:      sessions,
		Verification:  verification,
		Contributors:  contributors,
		Contributions: contributions,
		Users:         db.Users(),
		Audit:         cdb.AuditLogs(),
		Providers:     &Providers{},
		BaseURL:       "http://localhost:8080",
		ManifestPath:  manifestPath,
		Log:           log,
	})

	return &fixture{
		handler:      server.Handler(),
		db:           db,
		sessions:     sessions,
		verification: verification,
	}
}

// login creates a user with a live session and CSRF token and returns both.
func (f *fixture) login(t *testing.T, id string, role domain.Role) (*domain.User, string, string) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{
		ID:            id,
		Email:         id + "@example.com",
		Name:          id,
		Provider:      domain.ProviderGoogle,
		Role:          role,
		EmailVerified: true,
	}
	if err := f.db.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sessionID, err := f.sessions.CreateSession(ctx, user)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	csrf, err := f.sessions.GenerateCSRFToken()
	if err != nil {
		t.Fatalf("generate csrf: %v", err)
	}
	if err := f.sessions.StoreCSRFToken(ctx, sessionID, csrf); err != nil {
		t.Fatalf("store csrf: %v", err)
	}
	return user, sessionID, csrf
}

func (f *fixture) request(t *testing.T, method, target, sessionID, csrf string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["ok"] != true {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServer_SessionUnauthenticated(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/auth/session", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["authenticated"] != false {
		t.Errorf("expected unauthenticated, got %v", body)
	}
}

func TestServer_SessionAuthenticated(t *testing.T) {
	f := newFixture(t)
	user, sessionID, csrf := f.login(t, "u1", domain.RoleContributor)

	rec := f.request(t, http.MethodGet, "/api/auth/session", sessionID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["authenticated"] != true {
		t.Fatalf("expected authenticated, got %v", body)
	}
	if body["csrfToken"] != csrf {
		t.Errorf("expected csrf token in session payload")
	}
	u, _ := body["user"].(map[string]any)
	if u["email"] != user.Email || u["role"] != string(user.Role) {
		t.Errorf("unexpected user payload %v", u)
	}
}

func TestServer_LoginUnknownProvider(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/auth/login?provider=twitter", "", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown provider, got %d", rec.Code)
	}

	// A valid but unconfigured provider is also rejected.
	rec = f.request(t, http.MethodGet, "/api/auth/login?provider=google", "", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unconfigured provider, got %d", rec.Code)
	}
}

func TestServer_VerifyEmailRedirects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleContributor}
	if err := f.db.Users().Create(ctx, user); err != nil {
		t.Fatal(err)
	}
	token, err := f.verification.GenerateToken(ctx, user)
	if err != nil {
		t.Fatal(err)
	}

	rec := f.request(t, http.MethodGet, "/api/auth/verify-email?token="+token, "", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "http://localhost:8080/?verification=verified" {
		t.Errorf("unexpected redirect %s", loc)
	}

	// A consumed token fails.
	rec = f.request(t, http.MethodGet, "/api/auth/verify-email?token="+token, "", "", nil)
	if loc := rec.Header().Get("Location"); loc != "http://localhost:8080/?verification=verification_failed" {
		t.Errorf("unexpected redirect %s", loc)
	}
}

func TestServer_RequireUser(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/contributions/", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/contributions/", "bogus-session", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown session, got %d", rec.Code)
	}
}

func TestServer_BlockedUser(t *testing.T) {
	f := newFixture(t)
	user, sessionID, _ := f.login(t, "u1", domain.RoleContributor)

	if err := f.db.Users().SetBlocked(context.Background(), user.ID, true); err != nil {
		t.Fatal(err)
	}

	rec := f.request(t, http.MethodGet, "/api/contributions/", sessionID, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked user, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "account_blocked" {
		t.Errorf("unexpected error %v", body)
	}
}

func TestServer_CSRFRequired(t *testing.T) {
	f := newFixture(t)
	_, sessionID, csrf := f.login(t, "u1", domain.RoleContributor)

	draft := map[string]string{"title": "Guide", "filename": "guide.md", "content": "# Guide"}

	rec := f.request(t, http.MethodPost, "/api/contributions/", sessionID, "", draft)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "invalid_csrf_token" {
		t.Errorf("unexpected error %v", body)
	}

	rec = f.request(t, http.MethodPost, "/api/contributions/", sessionID, "wrong", draft)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with wrong csrf token, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodPost, "/api/contributions/", sessionID, csrf, draft)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with valid csrf token, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestServer_ContributionLifecycle(t *testing.T) {
	f := newFixture(t)
	_, sessionID, csrf := f.login(t, "author", domain.RoleContributor)
	_, editorSession, editorCSRF := f.login(t, "editor", domain.RoleEditor)

	draft := map[string]string{"title": "Guide", "filename": "guide.md", "content": "# Guide"}
	rec := f.request(t, http.MethodPost, "/api/contributions/", sessionID, csrf, draft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	id, _ := decodeBody(t, rec)["id"].(string)
	if id == "" {
		t.Fatal("expected contribution id")
	}

	rec = f.request(t, http.MethodPost, "/api/contributions/"+id+"/submit", sessionID, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if status := decodeBody(t, rec)["status"]; status != "pending" {
		t.Errorf("expected pending after submit, got %v", status)
	}

	// The author cannot review.
	rec = f.request(t, http.MethodGet, "/api/contributions/review/pending", sessionID, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for contributor on review routes, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/contributions/review/pending", editorSession, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending: expected 200, got %d", rec.Code)
	}

	review := map[string]any{"approve": true, "notes": "looks good"}
	rec = f.request(t, http.MethodPost, "/api/contributions/review/"+id, editorSession, editorCSRF, review)
	if rec.Code != http.StatusOK {
		t.Fatalf("review: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if status := decodeBody(t, rec)["status"]; status != "approved" {
		t.Errorf("expected approved, got %v", status)
	}

	// Reviewing twice conflicts.
	rec = f.request(t, http.MethodPost, "/api/contributions/review/"+id, editorSession, editorCSRF, review)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on double review, got %d", rec.Code)
	}
}

func TestServer_SubmitRequiresVerifiedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A password-less local account without a verified email.
	user := &domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleContributor}
	if err := f.db.Users().Create(ctx, user); err != nil {
		t.Fatal(err)
	}
	sessionID, _ := f.sessions.CreateSession(ctx, user)
	csrf, _ := f.sessions.GenerateCSRFToken()
	_ = f.sessions.StoreCSRFToken(ctx, sessionID, csrf)

	draft := map[string]string{"title": "Guide", "filename": "guide.md", "content": "# Guide"}
	rec := f.request(t, http.MethodPost, "/api/contributions/", sessionID, csrf, draft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	id, _ := decodeBody(t, rec)["id"].(string)

	rec = f.request(t, http.MethodPost, "/api/contributions/"+id+"/submit", sessionID, csrf, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before verification, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "email_not_verified" {
		t.Errorf("unexpected error %v", body)
	}
}

func TestServer_AdminRoutes(t *testing.T) {
	f := newFixture(t)
	target, targetSession, _ := f.login(t, "target", domain.RoleContributor)
	_, editorSession, _ := f.login(t, "editor", domain.RoleEditor)
	admin, adminSession, adminCSRF := f.login(t, "admin", domain.RoleAdmin)

	// Editors are below admin in the hierarchy.
	rec := f.request(t, http.MethodGet, "/api/admin/users", editorSession, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for editor on admin routes, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/admin/users", adminSession, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodPost, "/api/admin/users/"+target.ID+"/block", adminSession, adminCSRF, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("block: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	// Blocked users lose access on their next request.
	rec = f.request(t, http.MethodGet, "/api/contributions/", targetSession, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for freshly blocked user, got %d", rec.Code)
	}

	// Admins cannot block themselves.
	rec = f.request(t, http.MethodPost, "/api/admin/users/"+admin.ID+"/block", adminSession, adminCSRF, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 blocking self, got %d", rec.Code)
	}

	rec = f.request(t, http.MethodPost, "/api/admin/users/"+target.ID+"/role", adminSession, adminCSRF, map[string]string{"role": "editor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("role: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = f.request(t, http.MethodGet, "/api/admin/audit", adminSession, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if entries, _ := body["entries"].([]any); len(entries) == 0 {
		t.Errorf("expected audit entries recorded, got %v", body)
	}
}

func TestServer_Contributors(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/contributors", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	list, _ := body["contributors"].([]any)
	if len(list) != 2 {
		t.Fatalf("expected 2 contributors, got %v", body)
	}
	first, _ := list[0].(map[string]any)
	if first["login"] != "chrisschwer" || first["isOwner"] != true {
		t.Errorf("expected owner first, got %v", first)
	}
}

func TestServer_Versions(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/api/versions", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	guides, _ := body["styleguides"].([]any)
	if len(guides) != 1 {
		t.Fatalf("expected 1 guide, got %v", body)
	}
	guide, _ := guides[0].(map[string]any)
	if guide["slug"] != "python-styleguide" || guide["version"] != "1.2.0" {
		t.Errorf("unexpected summary %v", guide)
	}

	rec = f.request(t, http.MethodGet, "/api/versions/python-styleguide", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	detail := decodeBody(t, rec)
	if detail["version"] != "1.2.0" {
		t.Errorf("unexpected detail %v", detail)
	}
	if history, _ := detail["history"].([]any); len(history) != 1 {
		t.Errorf("expected history, got %v", detail)
	}

	rec = f.request(t, http.MethodGet, "/api/versions/absent", "", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown slug, got %d", rec.Code)
	}
}

func TestServer_Logout(t *testing.T) {
	f := newFixture(t)
	_, sessionID, _ := f.login(t, "u1", domain.RoleContributor)

	rec := f.request(t, http.MethodPost, "/api/auth/logout", sessionID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The session is gone afterwards.
	rec = f.request(t, http.MethodGet, "/api/auth/session", sessionID, "", nil)
	if body := decodeBody(t, rec); body["authenticated"] != false {
		t.Errorf("expected session invalidated, got %v", body)
	}

	rec = f.request(t, http.MethodGet, "/api/auth/logout", "", "", nil)
	if rec.Code != http.StatusFound {
		t.Errorf("expected redirect on GET logout, got %d", rec.Code)
	}
}
