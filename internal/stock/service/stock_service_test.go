package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/stock/entity"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/petersonmatiss/mpm/internal/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupStockTest(t *testing.T) (*gorm.DB, *StockService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewStockService(repos, db, nil, zap.NewNop())
	return db, svc
}

func TestReceiveProfile(t *testing.T) {
	_, svc := setupStockTest(t)

	prof, err := svc.ReceiveProfile(context.Background(), testutil.TestTenant, testActor(), &ReceiveProfileRequest{
		LotID:       "A15",
		ProfileType: "HEA200",
		Grade:       "S355",
		Length:      12000,
		Weight:      507.6,
	})
	if err != nil {
		t.Fatalf("ReceiveProfile failed: %v", err)
	}
	if prof.AvailableLength != 12000 {
		t.Errorf("AvailableLength = %.2f, want full length", prof.AvailableLength)
	}
	if !prof.Active || prof.Version != 1 {
		t.Errorf("active/version = %v/%d, want true/1", prof.Active, prof.Version)
	}
}

func TestReceiveProfileDuplicateLot(t *testing.T) {
	_, svc := setupStockTest(t)

	req := &ReceiveProfileRequest{LotID: "A15", ProfileType: "HEA200", Grade: "S355", Length: 12000}
	if _, err := svc.ReceiveProfile(context.Background(), testutil.TestTenant, testActor(), req); err != nil {
		t.Fatalf("first receive failed: %v", err)
	}

	_, err := svc.ReceiveProfile(context.Background(), testutil.TestTenant, testActor(), req)
	if !apperror.IsDuplicateIdentity(err) {
		t.Errorf("error = %v, want DuplicateIdentityError", err)
	}

	// The same lot id in another tenant is fine.
	if _, err := svc.ReceiveProfile(context.Background(), "tenant-other", testActor(), req); err != nil {
		t.Errorf("same lot in another tenant failed: %v", err)
	}
}

func TestReceiveProfileRejectsBadLotID(t *testing.T) {
	_, svc := setupStockTest(t)

	_, err := svc.ReceiveProfile(context.Background(), testutil.TestTenant, testActor(), &ReceiveProfileRequest{
		LotID:       "15A",
		ProfileType: "HEA200",
		Grade:       "S355",
		Length:      12000,
	})
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestReceiveSheetComputesArea(t *testing.T) {
	_, svc := setupStockTest(t)

	sheet, err := svc.ReceiveSheet(context.Background(), testutil.TestTenant, testActor(), &ReceiveSheetRequest{
		SheetID:   "SH-001",
		Grade:     "S355",
		Length:    3000,
		Width:     1500,
		Thickness: 10,
	})
	if err != nil {
		t.Fatalf("ReceiveSheet failed: %v", err)
	}
	if sheet.AvailableArea != 4_500_000 {
		t.Errorf("AvailableArea = %.2f, want 4500000", sheet.AvailableArea)
	}
}

func TestSoftDeleteGates(t *testing.T) {
	db, svc := setupStockTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)

	// A lot with usage history cannot be deleted.
	usage := &entity.ProfileUsage{
		ID:          "use-001",
		TenantID:    testutil.TestTenant,
		ProfileID:   &prof.ID,
		UsedLength:  1000,
		PiecesUsed:  1,
		TotalLength: 1000,
		UsedBy:      "operator-1",
	}
	if err := db.Create(usage).Error; err != nil {
		t.Fatalf("Failed to seed usage: %v", err)
	}

	err := svc.SoftDeleteProfile(context.Background(), testutil.TestTenant, "A15", testActor())
	if !apperror.IsValidation(err) {
		t.Errorf("delete with history: error = %v, want validation error", err)
	}

	// Without history the lot can be retired, and stays in the table.
	db.Delete(usage)
	if err := svc.SoftDeleteProfile(context.Background(), testutil.TestTenant, "A15", testActor()); err != nil {
		t.Fatalf("SoftDeleteProfile failed: %v", err)
	}

	var got entity.Profile
	if err := db.First(&got, "id = ?", prof.ID).Error; err != nil {
		t.Fatal("retired lot row was removed, want soft delete")
	}
	if got.Active {
		t.Error("retired lot still active")
	}

	// A retired lot is invisible to lookups.
	if _, err := svc.GetProfile(context.Background(), testutil.TestTenant, "A15"); err != apperror.ErrNotFound {
		t.Errorf("lookup of retired lot = %v, want ErrNotFound", err)
	}
}

func TestSoftDeleteReservedLotRefused(t *testing.T) {
	db, svc := setupStockTest(t)
	prof := testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)
	prof.IsReserved = true
	db.Save(prof)

	err := svc.SoftDeleteProfile(context.Background(), testutil.TestTenant, "A15", testActor())
	if !apperror.IsValidation(err) {
		t.Errorf("error = %v, want validation error for reserved lot", err)
	}
}

func TestExportInventory(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedProfile(t, db, testutil.TestTenant, "A15", 12000)
	testutil.SeedProfile(t, db, testutil.TestTenant, "B3", 6000)
	testutil.SeedSheet(t, db, testutil.TestTenant, "SH-001", 3000, 1500)

	buf, err := svc.ExportInventory(context.Background(), testutil.TestTenant)
	if err != nil {
		t.Fatalf("ExportInventory failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("export is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Profiles")
	if err != nil {
		t.Fatalf("Profiles sheet missing: %v", err)
	}
	// Header plus two lots.
	if len(rows) != 3 {
		t.Errorf("profile rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "lot_id" {
		t.Errorf("header = %v, want lot_id first", rows[0])
	}

	if _, err := f.GetRows("Sheets"); err != nil {
		t.Errorf("Sheets sheet missing: %v", err)
	}
}
