package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/petersonmatiss/mpm/internal/stock/service"
)

// StockHandler covers receipt, listing and retirement of stock units.
type StockHandler struct {
	svc *service.StockService
}

func NewStockHandler(svc *service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// ReceiveProfile registers an incoming bar lot.
// POST /api/v1/stock/profiles
func (h *StockHandler) ReceiveProfile(c *gin.Context) {
	var req service.ReceiveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	prof, err := h.svc.ReceiveProfile(c.Request.Context(), GetTenantID(c), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, prof)
}

// ListProfiles lists bar lots.
// GET /api/v1/stock/profiles?grade=S355&profile_type=HEA200&available=true&unreserved=true
func (h *StockHandler) ListProfiles(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.ListParams{
		Grade:       c.Query("grade"),
		ProfileType: c.Query("profile_type"),
		Available:   c.Query("available") == "true",
		Unreserved:  c.Query("unreserved") == "true",
		Page:        page,
		Size:        pageSize,
	}

	items, total, err := h.svc.ListProfiles(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		RespondError(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetProfile returns one lot by its code.
// GET /api/v1/stock/profiles/:lot_id
func (h *StockHandler) GetProfile(c *gin.Context) {
	prof, err := h.svc.GetProfile(c.Request.Context(), GetTenantID(c), c.Param("lot_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, prof)
}

// GetProfileUsage returns the usage ledger of one lot.
// GET /api/v1/stock/profiles/:lot_id/usage
func (h *StockHandler) GetProfileUsage(c *gin.Context) {
	usages, err := h.svc.ListProfileUsage(c.Request.Context(), GetTenantID(c), c.Param("lot_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: usages})
}

// DeleteProfile retires a lot without history.
// DELETE /api/v1/stock/profiles/:lot_id
func (h *StockHandler) DeleteProfile(c *gin.Context) {
	err := h.svc.SoftDeleteProfile(c.Request.Context(), GetTenantID(c), c.Param("lot_id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ReceiveSheet registers an incoming plate.
// POST /api/v1/stock/sheets
func (h *StockHandler) ReceiveSheet(c *gin.Context) {
	var req service.ReceiveSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	sheet, err := h.svc.ReceiveSheet(c.Request.Context(), GetTenantID(c), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, sheet)
}

// ListSheets lists plates.
// GET /api/v1/stock/sheets?grade=S355&thickness=10&unused=true
func (h *StockHandler) ListSheets(c *gin.Context) {
	page, pageSize := GetPagination(c)
	thickness, _ := strconv.ParseFloat(c.Query("thickness"), 64)
	params := repository.SheetListParams{
		Grade:     c.Query("grade"),
		Thickness: thickness,
		Unused:    c.Query("unused") == "true",
		Page:      page,
		Size:      pageSize,
	}

	items, total, err := h.svc.ListSheets(c.Request.Context(), GetTenantID(c), params)
	if err != nil {
		RespondError(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GetSheetUsage returns the usage ledger of one sheet.
// GET /api/v1/stock/sheets/:sheet_id/usage
func (h *StockHandler) GetSheetUsage(c *gin.Context) {
	usages, err := h.svc.ListSheetUsage(c.Request.Context(), GetTenantID(c), c.Param("sheet_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: usages})
}

// GetProjectUsage returns all profile usage booked to one project.
// GET /api/v1/stock/usage?project_id=xxx
func (h *StockHandler) GetProjectUsage(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		BadRequest(c, "project_id is required")
		return
	}
	usages, err := h.svc.ListProjectUsage(c.Request.Context(), GetTenantID(c), projectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: usages})
}

// ListRemnants lists usable offcuts, longest first.
// GET /api/v1/stock/remnants?min_length=1500
func (h *StockHandler) ListRemnants(c *gin.Context) {
	minLength, _ := strconv.ParseFloat(c.Query("min_length"), 64)
	items, err := h.svc.ListRemnants(c.Request.Context(), GetTenantID(c), minLength)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// ExportInventory streams the inventory workbook.
// GET /api/v1/stock/export
func (h *StockHandler) ExportInventory(c *gin.Context) {
	buf, err := h.svc.ExportInventory(c.Request.Context(), GetTenantID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
