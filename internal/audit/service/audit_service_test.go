package service

import (
	"context"
	"testing"
	"time"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/testutil"
)

func seedEntry(t *testing.T, svc *AuditService, id, entityID, actorID string, at time.Time) {
	t.Helper()
	err := svc.repo.Create(context.Background(), &entity.AuditEntry{
		ID:         id,
		TenantID:   testutil.TestTenant,
		EntityType: "profile",
		EntityID:   entityID,
		Action:     entity.ActionConsume,
		ActorID:    actorID,
		ActorName:  "Test Admin",
		CreatedAt:  at,
	})
	if err != nil {
		t.Fatalf("Failed to seed audit entry: %v", err)
	}
}

func TestListByEntityNewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)

	now := time.Now()
	seedEntry(t, svc, "ae-1", "prof-1", "user-1", now.Add(-2*time.Hour))
	seedEntry(t, svc, "ae-2", "prof-1", "user-1", now.Add(-1*time.Hour))
	seedEntry(t, svc, "ae-3", "prof-2", "user-1", now)

	items, err := svc.ListByEntity(context.Background(), testutil.TestTenant, "profile", "prof-1")
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("entries = %d, want 2", len(items))
	}
	if items[0].ID != "ae-2" {
		t.Errorf("first entry = %s, want newest (ae-2)", items[0].ID)
	}
}

func TestListByActorWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)

	now := time.Now()
	seedEntry(t, svc, "ae-1", "prof-1", "user-1", now.Add(-40*24*time.Hour))
	seedEntry(t, svc, "ae-2", "prof-1", "user-1", now.Add(-time.Hour))
	seedEntry(t, svc, "ae-3", "prof-1", "user-2", now)

	// Defaults to the last 30 days.
	items, err := svc.ListByActor(context.Background(), testutil.TestTenant, "user-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListByActor failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "ae-2" {
		t.Errorf("entries = %v, want only ae-2", items)
	}
}

func TestListByActorRequiresActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)

	_, err := svc.ListByActor(context.Background(), testutil.TestTenant, "", time.Time{}, time.Time{})
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}
