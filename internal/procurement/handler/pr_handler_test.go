package handler

import (
	"net/http"
	"testing"

	"github.com/petersonmatiss/mpm/internal/procurement/entity"
	"github.com/petersonmatiss/mpm/internal/procurement/repository"
	"github.com/petersonmatiss/mpm/internal/procurement/service"
	"github.com/petersonmatiss/mpm/internal/testutil"
	"go.uber.org/zap"
)

func setupPRHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	svc := service.NewPRService(repository.NewPRRepository(db), db, zap.NewNop())
	h := NewPRHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/procurement")
	prs := api.Group("/purchase-requests")
	prs.GET("", h.ListPRs)
	prs.POST("", h.CreatePR)
	prs.GET("/:id", h.GetPR)
	prs.POST("/:id/transition", h.Transition)
	prs.POST("/:id/cancel", h.Cancel)
	prs.POST("/:id/winner", h.SelectWinner)
	prs.POST("/:id/quotes", h.AddQuote)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreatePREndpoint(t *testing.T) {
	env := setupPRHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/procurement/purchase-requests", map[string]interface{}{
		"title": "Beams for hall project",
		"lines": []map[string]interface{}{
			{"material_type": "profile", "profile_type": "HEA200", "dimensions": "12000", "grade": "S355", "quantity": 10},
		},
	}, token)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	if data["status"] != "draft" {
		t.Errorf("status = %v, want draft", data["status"])
	}
	if data["number"] == "" {
		t.Error("number not generated")
	}
}

func TestCreatePRRequiresAuth(t *testing.T) {
	env := setupPRHandlerTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/procurement/purchase-requests", map[string]interface{}{
		"title": "No token",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestIllegalTransitionReturns409(t *testing.T) {
	env := setupPRHandlerTest(t)
	token := testutil.DefaultTestToken()

	// Seed a draft directly.
	pr := &entity.PurchaseRequest{
		ID:       "pr-h-001",
		TenantID: testutil.TestTenant,
		Number:   "PR-2026-0001",
		Title:    "Handler test",
		Status:   entity.PRStatusDraft,
		Version:  1,
	}
	if err := env.DB.Create(pr).Error; err != nil {
		t.Fatalf("Failed to seed PR: %v", err)
	}

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/procurement/purchase-requests/pr-h-001/transition",
		map[string]interface{}{"target": "completed"}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	if code, _ := resp["code"].(float64); int(code) != 40902 {
		t.Errorf("code = %v, want 40902", resp["code"])
	}
}

func TestCancelWithoutReasonReturns400(t *testing.T) {
	env := setupPRHandlerTest(t)
	token := testutil.DefaultTestToken()

	pr := &entity.PurchaseRequest{
		ID:       "pr-h-002",
		TenantID: testutil.TestTenant,
		Number:   "PR-2026-0002",
		Title:    "Handler test",
		Status:   entity.PRStatusDraft,
		Version:  1,
	}
	if err := env.DB.Create(pr).Error; err != nil {
		t.Fatalf("Failed to seed PR: %v", err)
	}

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/procurement/purchase-requests/pr-h-002/cancel",
		map[string]interface{}{"reason": "  "}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestTenantIsolationOnGet(t *testing.T) {
	env := setupPRHandlerTest(t)

	pr := &entity.PurchaseRequest{
		ID:       "pr-h-003",
		TenantID: "tenant-other",
		Number:   "PR-2026-0003",
		Title:    "Foreign tenant",
		Status:   entity.PRStatusDraft,
		Version:  1,
	}
	if err := env.DB.Create(pr).Error; err != nil {
		t.Fatalf("Failed to seed PR: %v", err)
	}

	// A token for the default tenant cannot see the other tenant's PR.
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/procurement/purchase-requests/pr-h-003", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
