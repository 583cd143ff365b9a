package service

import (
	"context"
	"errors"
	"testing"

	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/petersonmatiss/mpm/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReservationTest(t *testing.T) (*gorm.DB, *ReservationService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewReservationService(repos, db, zap.NewNop())
	return db, svc
}

func TestReservePartialKeepsLotOpen(t *testing.T) {
	db, svc := setupReservationTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	_, err := svc.Reserve(context.Background(), testutil.TestTenant, "A15", testActor(), &ReserveRequest{
		ReservedLength: 4000,
		CreatedBy:      "planner-1",
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	var got entity.Profile
	db.First(&got, "id = ?", prof.ID)
	if got.IsReserved {
		t.Error("lot flagged reserved with free length remaining")
	}
}

func TestReserveToFullFlagsLot(t *testing.T) {
	db, svc := setupReservationTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	for _, length := range []float64{7000, 5000} {
		if _, err := svc.Reserve(context.Background(), testutil.TestTenant, "A15", testActor(), &ReserveRequest{
			ReservedLength: length,
			CreatedBy:      "planner-1",
		}); err != nil {
			t.Fatalf("Reserve(%v) failed: %v", length, err)
		}
	}

	var got entity.Profile
	db.First(&got, "id = ?", prof.ID)
	if !got.IsReserved {
		t.Error("fully reserved lot is not flagged")
	}
}

func TestOverReserveFails(t *testing.T) {
	db, svc := setupReservationTest(t)
	testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	if _, err := svc.Reserve(context.Background(), testutil.TestTenant, "A15", testActor(), &ReserveRequest{
		ReservedLength: 10000,
		CreatedBy:      "planner-1",
	}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	_, err := svc.Reserve(context.Background(), testutil.TestTenant, "A15", testActor(), &ReserveRequest{
		ReservedLength: 3000,
		CreatedBy:      "planner-1",
	})
	if err == nil {
		t.Fatal("over-reserve succeeded, want failure")
	}

	var ise *apperror.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("error = %v, want InsufficientStockError", err)
	}
	if ise.Required != 3000 || ise.Available != 2000 {
		t.Errorf("required/available = %.2f/%.2f, want 3000/2000", ise.Required, ise.Available)
	}
}

func TestUnreserveClearsEverything(t *testing.T) {
	db, svc := setupReservationTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	if _, err := svc.Reserve(context.Background(), testutil.TestTenant, "A15", testActor(), &ReserveRequest{
		ReservedLength: 12000,
		CreatedBy:      "planner-1",
	}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := svc.Unreserve(context.Background(), testutil.TestTenant, "A15", testActor()); err != nil {
		t.Fatalf("Unreserve failed: %v", err)
	}

	var got entity.Profile
	db.First(&got, "id = ?", prof.ID)
	if got.IsReserved {
		t.Error("lot still flagged reserved after release")
	}

	var count int64
	db.Model(&entity.MaterialReservation{}).Where("profile_id = ?", prof.ID).Count(&count)
	if count != 0 {
		t.Errorf("reservation rows = %d, want 0", count)
	}

	// Reserve and unreserve each leave one audit entry.
	var entries []auditentity.AuditEntry
	db.Where("entity_id = ?", prof.ID).Order("created_at ASC").Find(&entries)
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Action != auditentity.ActionReserve || entries[1].Action != auditentity.ActionUnreserve {
		t.Errorf("actions = %s,%s, want reserve,unreserve", entries[0].Action, entries[1].Action)
	}
}

func TestReserveUnknownLot(t *testing.T) {
	_, svc := setupReservationTest(t)

	_, err := svc.Reserve(context.Background(), testutil.TestTenant, "Z1", testActor(), &ReserveRequest{
		ReservedLength: 100,
		CreatedBy:      "planner-1",
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
