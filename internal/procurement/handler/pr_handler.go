package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/procurement/entity"
	"github.com/petersonmatiss/mpm/internal/procurement/service"
)

// PRHandler exposes the purchase-request lifecycle.
type PRHandler struct {
	svc *service.PRService
}

func NewPRHandler(svc *service.PRService) *PRHandler {
	return &PRHandler{svc: svc}
}

// ListPRs pages purchase requests.
// GET /api/v1/procurement/purchase-requests?status=draft&search=HEA
func (h *PRHandler) ListPRs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
	}

	items, total, err := h.svc.List(c.Request.Context(), GetTenantID(c), page, pageSize, filters)
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

// GetPR loads one purchase request with lines and quotes.
// GET /api/v1/procurement/purchase-requests/:id
func (h *PRHandler) GetPR(c *gin.Context) {
	pr, err := h.svc.Get(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// CreatePR opens a draft.
// POST /api/v1/procurement/purchase-requests
func (h *PRHandler) CreatePR(c *gin.Context) {
	var req service.CreatePRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	pr, err := h.svc.Create(c.Request.Context(), GetTenantID(c), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, pr)
}

// Transition moves the request to a target status.
// POST /api/v1/procurement/purchase-requests/:id/transition
func (h *PRHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	pr, err := h.svc.Transition(c.Request.Context(), GetTenantID(c), c.Param("id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// Cancel is a transition shortcut that makes the reason explicit.
// POST /api/v1/procurement/purchase-requests/:id/cancel
func (h *PRHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	pr, err := h.svc.Transition(c.Request.Context(), GetTenantID(c), c.Param("id"), GetActor(c), &service.TransitionRequest{
		Target: entity.PRStatusCanceled,
		Reason: req.Reason,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// SelectWinner marks a supplier's quote as the winning offer.
// POST /api/v1/procurement/purchase-requests/:id/winner
func (h *PRHandler) SelectWinner(c *gin.Context) {
	var req struct {
		SupplierID string `json:"supplier_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	pr, err := h.svc.SelectWinner(c.Request.Context(), GetTenantID(c), c.Param("id"), req.SupplierID, GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// AddLine appends a material line to a draft.
// POST /api/v1/procurement/purchase-requests/:id/lines
func (h *PRHandler) AddLine(c *gin.Context) {
	var req service.CreatePRLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	line, err := h.svc.AddLine(c.Request.Context(), GetTenantID(c), c.Param("id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, line)
}

// UpdateLine edits a draft line.
// PUT /api/v1/procurement/purchase-requests/:id/lines/:line_id
func (h *PRHandler) UpdateLine(c *gin.Context) {
	var req service.CreatePRLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	line, err := h.svc.UpdateLine(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("line_id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, line)
}

// RemoveLine deletes a draft line.
// DELETE /api/v1/procurement/purchase-requests/:id/lines/:line_id
func (h *PRHandler) RemoveLine(c *gin.Context) {
	err := h.svc.RemoveLine(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("line_id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// AddQuote records a supplier's quote.
// POST /api/v1/procurement/purchase-requests/:id/quotes
func (h *PRHandler) AddQuote(c *gin.Context) {
	var req service.AddQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	quote, err := h.svc.AddQuote(c.Request.Context(), GetTenantID(c), c.Param("id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, quote)
}

// RemoveQuote withdraws an unselected quote.
// DELETE /api/v1/procurement/purchase-requests/:id/quotes/:quote_id
func (h *PRHandler) RemoveQuote(c *gin.Context) {
	err := h.svc.RemoveQuote(c.Request.Context(), GetTenantID(c), c.Param("id"), c.Param("quote_id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}
