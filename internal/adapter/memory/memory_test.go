package memory

import (
	"context"
	"testing"
	"time"

	"styleguides/internal/domain"
)

func TestSessionStore_GetExpiredDeletes(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Sessions().Create(ctx, &domain.Session{
		ID:        "s1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	got, err := db.Sessions().Get(ctx, "s1")
	if err != nil || got != nil {
		t.Fatalf("expected expired session reported absent, got %v, %v", got, err)
	}

	// The sweep afterwards finds nothing left to remove.
	n, _ := db.Sessions().DeleteExpired(ctx, time.Now())
	if n != 0 {
		t.Errorf("expected 0 removed after lazy deletion, got %d", n)
	}
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Sessions().Create(ctx, &domain.Session{
		ID:        "s1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	first, _ := db.Sessions().Get(ctx, "s1")
	first.UserID = "tampered"

	second, _ := db.Sessions().Get(ctx, "s1")
	if second.UserID != "u1" {
		t.Errorf("stored session mutated through returned copy: %s", second.UserID)
	}
}

func TestSessionStore_UpdateExpiry(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Sessions().Create(ctx, &domain.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)})

	later := time.Now().Add(48 * time.Hour)
	found, err := db.Sessions().UpdateExpiry(ctx, "s1", later)
	if err != nil || !found {
		t.Fatalf("expected update to find session, got %v, %v", found, err)
	}

	got, _ := db.Sessions().Get(ctx, "s1")
	if !got.ExpiresAt.Equal(later) {
		t.Errorf("expected expiry %v, got %v", later, got.ExpiresAt)
	}

	found, err = db.Sessions().UpdateExpiry(ctx, "missing", later)
	if err != nil || found {
		t.Errorf("expected update on missing session to report not found, got %v, %v", found, err)
	}
}

func TestSessionStore_DeleteExpiredCounts(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Sessions().Create(ctx, &domain.Session{ID: "live", ExpiresAt: time.Now().Add(time.Hour)})
	_ = db.Sessions().Create(ctx, &domain.Session{ID: "old-1", ExpiresAt: time.Now().Add(-time.Hour)})
	_ = db.Sessions().Create(ctx, &domain.Session{ID: "old-2", ExpiresAt: time.Now().Add(-2 * time.Hour)})

	n, err := db.Sessions().DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if got, _ := db.Sessions().Get(ctx, "live"); got == nil {
		t.Error("expected live session to survive sweep")
	}
}

func TestTokenStore_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	db := New()
	future := time.Now().Add(time.Hour)

	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "a", UserID: "u1", Email: "u1@example.com", ExpiresAt: future})
	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "b", UserID: "u1", Email: "u1@example.com", ExpiresAt: future})
	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "c", UserID: "u2", Email: "u2@example.com", ExpiresAt: future})

	if err := db.Tokens().DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("delete by user: %v", err)
	}

	for _, token := range []string{"a", "b"} {
		if got, _ := db.Tokens().Get(ctx, token); got != nil {
			t.Errorf("expected token %s removed", token)
		}
	}
	if got, _ := db.Tokens().Get(ctx, "c"); got == nil {
		t.Error("expected other user's token kept")
	}
}

func TestTokenStore_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "a", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)})

	for i := 0; i < 3; i++ {
		if err := db.Tokens().IncrementAttempts(ctx, "a"); err != nil {
			t.Fatalf("increment %d: %v", i+1, err)
		}
	}
	got, _ := db.Tokens().Get(ctx, "a")
	if got.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", got.Attempts)
	}

	if err := db.Tokens().IncrementAttempts(ctx, "missing"); err == nil {
		t.Error("expected error incrementing a missing token")
	}
}

func TestTokenStore_HasTokenForEmail(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "a", Email: "u1@example.com", ExpiresAt: time.Now().Add(time.Hour)})

	if ok, _ := db.Tokens().HasTokenForEmail(ctx, "u1@example.com"); !ok {
		t.Error("expected a token for u1@example.com")
	}
	if ok, _ := db.Tokens().HasTokenForEmail(ctx, "other@example.com"); ok {
		t.Error("expected no token for other@example.com")
	}
}

func TestTokenStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "live", ExpiresAt: time.Now().Add(time.Hour)})
	_ = db.Tokens().Put(ctx, &domain.VerificationToken{Token: "dead", ExpiresAt: time.Now().Add(-time.Hour)})

	n, err := db.Tokens().DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
}

func TestRateLimitStore_RecordAccumulates(t *testing.T) {
	ctx := context.Background()
	db := New()

	first := time.Now().Add(-time.Minute)
	second := time.Now()
	_ = db.RateLimits().Record(ctx, "u1@example.com", first)
	_ = db.RateLimits().Record(ctx, "u1@example.com", second)

	rec, err := db.RateLimits().Get(ctx, "u1@example.com")
	if err != nil || rec == nil {
		t.Fatalf("expected record, got %v, %v", rec, err)
	}
	if rec.Count != 2 {
		t.Errorf("expected count 2, got %d", rec.Count)
	}
	if !rec.LastAttempt.Equal(second) {
		t.Errorf("expected last attempt %v, got %v", second, rec.LastAttempt)
	}
}

func TestRateLimitStore_DeleteIdle(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.RateLimits().Record(ctx, "idle@example.com", time.Now().Add(-48*time.Hour))
	_ = db.RateLimits().Record(ctx, "fresh@example.com", time.Now())

	n, err := db.RateLimits().DeleteIdle(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if rec, _ := db.RateLimits().Get(ctx, "idle@example.com"); rec != nil {
		t.Error("expected idle record dropped")
	}
	if rec, _ := db.RateLimits().Get(ctx, "fresh@example.com"); rec == nil {
		t.Error("expected fresh record kept")
	}
}

func TestUserRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := New()

	user := &domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleContributor}
	if err := db.Users().Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Users().Create(ctx, user); err == nil {
		t.Error("expected duplicate create to fail")
	}

	byID, _ := db.Users().GetByID(ctx, "u1")
	if byID == nil || byID.Email != "u1@example.com" {
		t.Errorf("unexpected lookup by id: %+v", byID)
	}
	byEmail, _ := db.Users().GetByEmail(ctx, "u1@example.com")
	if byEmail == nil || byEmail.ID != "u1" {
		t.Errorf("unexpected lookup by email: %+v", byEmail)
	}
	if missing, _ := db.Users().GetByID(ctx, "absent"); missing != nil {
		t.Errorf("expected nil for absent user, got %+v", missing)
	}
}

func TestUserRepo_Mutations(t *testing.T) {
	ctx := context.Background()
	db := New()

	_ = db.Users().Create(ctx, &domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleContributor})

	if err := db.Users().SetEmailVerified(ctx, "u1", true); err != nil {
		t.Fatalf("set verified: %v", err)
	}
	if err := db.Users().SetBlocked(ctx, "u1", true); err != nil {
		t.Fatalf("set blocked: %v", err)
	}
	if err := db.Users().SetRole(ctx, "u1", domain.RoleEditor); err != nil {
		t.Fatalf("set role: %v", err)
	}

	got, _ := db.Users().GetByID(ctx, "u1")
	if !got.EmailVerified || !got.Blocked || got.Role != domain.RoleEditor {
		t.Errorf("unexpected state after mutations: %+v", got)
	}

	if err := db.Users().SetRole(ctx, "missing", domain.RoleEditor); err == nil {
		t.Error("expected error mutating a missing user")
	}
}

func TestContributionRepo_ListOrdering(t *testing.T) {
	ctx := context.Background()
	db := NewContributionDB()
	base := time.Now()

	for i, id := range []string{"c1", "c2", "c3"} {
		_ = db.Contributions().Create(ctx, &domain.Contribution{
			ID:        id,
			UserID:    "u1",
			Status:    domain.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	byUser, err := db.Contributions().ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 3 || byUser[0].ID != "c3" || byUser[2].ID != "c1" {
		t.Errorf("expected newest first, got %v", ids(byUser))
	}

	byStatus, err := db.Contributions().ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(byStatus) != 3 || byStatus[0].ID != "c1" || byStatus[2].ID != "c3" {
		t.Errorf("expected oldest first, got %v", ids(byStatus))
	}
}

func TestContributionRepo_Update(t *testing.T) {
	ctx := context.Background()
	db := NewContributionDB()

	c := &domain.Contribution{ID: "c1", UserID: "u1", Status: domain.StatusDraft}
	_ = db.Contributions().Create(ctx, c)

	c.Status = domain.StatusPending
	if err := db.Contributions().Update(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := db.Contributions().GetByID(ctx, "c1")
	if got.Status != domain.StatusPending {
		t.Errorf("expected pending after update, got %s", got.Status)
	}

	if err := db.Contributions().Update(ctx, &domain.Contribution{ID: "missing"}); err == nil {
		t.Error("expected error updating a missing contribution")
	}
}

func TestAuditRepo_ListRecent(t *testing.T) {
	ctx := context.Background()
	db := NewContributionDB()

	for _, id := range []string{"a1", "a2", "a3"} {
		_ = db.AuditLogs().Append(ctx, &domain.AuditLog{ID: id, Action: domain.AuditUserBlocked})
	}

	recent, err := db.AuditLogs().ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Errorf("expected [a3 a2], got %v", auditIDs(recent))
	}

	all, _ := db.AuditLogs().ListRecent(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected all entries for limit 0, got %d", len(all))
	}
}

func ids(cs []*domain.Contribution) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func auditIDs(ls []*domain.AuditLog) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}
