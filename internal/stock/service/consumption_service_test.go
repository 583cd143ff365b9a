package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/petersonmatiss/mpm/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupConsumptionTest(t *testing.T) (*gorm.DB, *ConsumptionService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewConsumptionService(repos, db, nil, zap.NewNop())
	return db, svc
}

func testActor() auditentity.Actor {
	return auditentity.Actor{ID: "test-user-001", Name: "Test Admin", CorrelationID: "req-test"}
}

func TestValidateLotID(t *testing.T) {
	valid := []string{"A15", "B3", "Z999", "P1"}
	for _, id := range valid {
		if err := ValidateLotID(id); err != nil {
			t.Errorf("ValidateLotID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"a15", "15A", "AB15", "A", "15", "", "A15B", "A-15"}
	for _, id := range invalid {
		err := ValidateLotID(id)
		if err == nil {
			t.Errorf("ValidateLotID(%q) = nil, want validation error", id)
			continue
		}
		if !apperror.IsValidation(err) {
			t.Errorf("ValidateLotID(%q) = %v, want ValidationError", id, err)
		}
	}
}

func TestConsumeDecrementsAvailability(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	usage, err := svc.Consume(context.Background(), testutil.TestTenant, "A15", testActor(), &ConsumeRequest{
		UsedLength: 2500,
		PiecesUsed: 2,
		UsedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if usage.TotalLength != 5000 {
		t.Errorf("usage.TotalLength = %.2f, want 5000", usage.TotalLength)
	}

	var got entity.Profile
	if err := db.First(&got, "id = ?", prof.ID).Error; err != nil {
		t.Fatalf("Failed to reload profile: %v", err)
	}
	if got.AvailableLength != 7000 {
		t.Errorf("AvailableLength = %.2f, want 7000", got.AvailableLength)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}

	// Exactly one audit entry for the consume.
	var entries []auditentity.AuditEntry
	if err := db.Where("entity_id = ? AND action = ?", prof.ID, auditentity.ActionConsume).Find(&entries).Error; err != nil {
		t.Fatalf("Failed to load audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].OldValue != "12000.00" || entries[0].NewValue != "7000.00" {
		t.Errorf("audit old/new = %q/%q, want 12000.00/7000.00", entries[0].OldValue, entries[0].NewValue)
	}
}

func TestConsumeInsufficientStock(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)
	prof.AvailableLength = 5000
	db.Save(prof)

	_, err := svc.Consume(context.Background(), testutil.TestTenant, "A15", testActor(), &ConsumeRequest{
		UsedLength: 3000,
		PiecesUsed: 2,
		UsedBy:     "operator-1",
	})
	if err == nil {
		t.Fatal("Consume succeeded, want insufficient stock error")
	}

	var ise *apperror.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("error = %v, want InsufficientStockError", err)
	}
	if ise.Required != 6000 || ise.Available != 5000 {
		t.Errorf("required/available = %.2f/%.2f, want 6000/5000", ise.Required, ise.Available)
	}

	// The failed attempt must not change the lot.
	var got entity.Profile
	db.First(&got, "id = ?", prof.ID)
	if got.AvailableLength != 5000 {
		t.Errorf("AvailableLength = %.2f, want 5000 unchanged", got.AvailableLength)
	}
}

func TestConsumeSpawnsRemnant(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	usage, err := svc.Consume(context.Background(), testutil.TestTenant, "A15", testActor(), &ConsumeRequest{
		UsedLength:    5000,
		PiecesUsed:    1,
		UsedBy:        "operator-1",
		RemnantLength: 2000,
	})
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if usage.CreatedRemnantID == nil {
		t.Fatal("usage.CreatedRemnantID is nil, want spawned remnant")
	}

	var rem entity.ProfileRemnant
	if err := db.First(&rem, "id = ?", *usage.CreatedRemnantID).Error; err != nil {
		t.Fatalf("Failed to load remnant: %v", err)
	}
	if rem.Length != 2000 {
		t.Errorf("remnant.Length = %.2f, want 2000", rem.Length)
	}
	if !rem.IsUsable || rem.IsUsed {
		t.Errorf("remnant usable/used = %v/%v, want true/false", rem.IsUsable, rem.IsUsed)
	}
	// Weight is proportional: parent 507.6 kg over 12000 mm -> 84.6 kg for 2000 mm.
	wantWeight := prof.Weight * 2000 / 12000
	if diff := rem.Weight - wantWeight; diff > 0.01 || diff < -0.01 {
		t.Errorf("remnant.Weight = %.3f, want %.3f", rem.Weight, wantWeight)
	}
}

func TestConsumeRollsBackOnFailure(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	// Force the usage insert to fail mid-transaction.
	if err := db.Migrator().DropTable(&entity.ProfileUsage{}); err != nil {
		t.Fatalf("Failed to drop usage table: %v", err)
	}

	_, err := svc.Consume(context.Background(), testutil.TestTenant, "A15", testActor(), &ConsumeRequest{
		UsedLength: 2000,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if err == nil {
		t.Fatal("Consume succeeded, want failure")
	}

	// The decrement must have rolled back with the failed insert.
	var got entity.Profile
	db.First(&got, "id = ?", prof.ID)
	if got.AvailableLength != 12000 {
		t.Errorf("AvailableLength = %.2f, want 12000 after rollback", got.AvailableLength)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1 after rollback", got.Version)
	}
}

func TestConcurrentConsumesCannotOversell(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	// Two cuts of 7000 each against 12000: at most one can succeed.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Consume(context.Background(), testutil.TestTenant, "A15", testActor(), &ConsumeRequest{
				UsedLength: 7000,
				PiecesUsed: 1,
				UsedBy:     "operator-1",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("%d consumes succeeded, want exactly 1", succeeded)
	}

	var got entity.Profile
	db.First(&got, "tenant_id = ? AND lot_id = ?", testutil.TestTenant, "A15")
	if got.AvailableLength != 5000 {
		t.Errorf("AvailableLength = %.2f, want 5000", got.AvailableLength)
	}
}

func TestConsumeWrongTenantNotFound(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	_, err := svc.Consume(context.Background(), "tenant-other", "A15", testActor(), &ConsumeRequest{
		UsedLength: 1000,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestConsumeRemnant(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	rem := &entity.ProfileRemnant{
		ID:        "rem-001",
		TenantID:  testutil.TestTenant,
		ProfileID: prof.ID,
		Length:    3000,
		Weight:    126.9,
		IsUsable:  true,
		Version:   1,
	}
	if err := db.Create(rem).Error; err != nil {
		t.Fatalf("Failed to seed remnant: %v", err)
	}

	usage, err := svc.ConsumeRemnant(context.Background(), testutil.TestTenant, rem.ID, testActor(), &ConsumeRequest{
		UsedLength: 1000,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("ConsumeRemnant failed: %v", err)
	}
	if usage.RemnantID == nil || *usage.RemnantID != rem.ID {
		t.Error("usage is not linked to the remnant")
	}
	if usage.ProfileID != nil {
		t.Error("remnant usage must not reference the parent lot directly")
	}

	var got entity.ProfileRemnant
	db.First(&got, "id = ?", rem.ID)
	if got.Length != 2000 {
		t.Errorf("remnant.Length = %.2f, want 2000", got.Length)
	}
	if got.IsUsed {
		t.Error("remnant flagged used with length remaining")
	}
	wantWeight := 126.9 * 2000 / 3000
	if diff := got.Weight - wantWeight; diff > 0.01 || diff < -0.01 {
		t.Errorf("remnant.Weight = %.3f, want %.3f", got.Weight, wantWeight)
	}
}

func TestConsumeRemnantToZeroMarksUsed(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	rem := &entity.ProfileRemnant{
		ID:        "rem-002",
		TenantID:  testutil.TestTenant,
		ProfileID: prof.ID,
		Length:    2000,
		Weight:    84.6,
		IsUsable:  true,
		Version:   1,
	}
	if err := db.Create(rem).Error; err != nil {
		t.Fatalf("Failed to seed remnant: %v", err)
	}

	_, err := svc.ConsumeRemnant(context.Background(), testutil.TestTenant, rem.ID, testActor(), &ConsumeRequest{
		UsedLength: 2000,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("ConsumeRemnant failed: %v", err)
	}

	var got entity.ProfileRemnant
	db.First(&got, "id = ?", rem.ID)
	if !got.IsUsed {
		t.Error("remnant cut to zero is not flagged used")
	}

	// A used remnant rejects further cuts.
	_, err = svc.ConsumeRemnant(context.Background(), testutil.TestTenant, rem.ID, testActor(), &ConsumeRequest{
		UsedLength: 1,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error on used remnant", err)
	}
}

func TestConsumeRemnantCannotSpawnRemnant(t *testing.T) {
	_, svc := setupConsumptionTest(t)

	_, err := svc.ConsumeRemnant(context.Background(), testutil.TestTenant, "rem-x", testActor(), &ConsumeRequest{
		UsedLength:    500,
		PiecesUsed:    1,
		UsedBy:        "operator-1",
		RemnantLength: 100,
	})
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestConsumeSheet(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	sheet := testutil.SeedSheet(t, db, testutil.TestTenant, "SH-001", 3000, 1500)

	usage, err := svc.ConsumeSheet(context.Background(), testutil.TestTenant, "SH-001", testActor(), &ConsumeSheetRequest{
		UsedArea:   1_000_000,
		PiecesUsed: 2,
		UsedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("ConsumeSheet failed: %v", err)
	}
	if usage.SheetID != sheet.ID {
		t.Error("usage is not linked to the sheet")
	}

	var got entity.Sheet
	db.First(&got, "id = ?", sheet.ID)
	if got.AvailableArea != 2_500_000 {
		t.Errorf("AvailableArea = %.2f, want 2500000", got.AvailableArea)
	}
	if got.IsUsed {
		t.Error("sheet flagged used with area remaining")
	}
}

func TestConsumeSheetToZeroMarksUsed(t *testing.T) {
	db, svc := setupConsumptionTest(t)
	sheet := testutil.SeedSheet(t, db, testutil.TestTenant, "SH-002", 2000, 1000)

	_, err := svc.ConsumeSheet(context.Background(), testutil.TestTenant, "SH-002", testActor(), &ConsumeSheetRequest{
		UsedArea:   2_000_000,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("ConsumeSheet failed: %v", err)
	}

	var got entity.Sheet
	db.First(&got, "id = ?", sheet.ID)
	if !got.IsUsed {
		t.Error("sheet cut to zero is not flagged used")
	}

	_, err = svc.ConsumeSheet(context.Background(), testutil.TestTenant, "SH-002", testActor(), &ConsumeSheetRequest{
		UsedArea:   1,
		PiecesUsed: 1,
		UsedBy:     "operator-1",
	})
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error on used sheet", err)
	}
}

func TestRemnantWeightZeroParent(t *testing.T) {
	if got := remnantWeight(100, 50, 0); got != 0 {
		t.Errorf("remnantWeight with zero parent length = %.2f, want 0", got)
	}
}
