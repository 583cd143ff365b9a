package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/stock/service"
)

// ConsumptionHandler exposes the consumption engine.
type ConsumptionHandler struct {
	svc *service.ConsumptionService
}

func NewConsumptionHandler(svc *service.ConsumptionService) *ConsumptionHandler {
	return &ConsumptionHandler{svc: svc}
}

// Consume cuts pieces from a lot, optionally spawning a remnant.
// POST /api/v1/stock/profiles/:lot_id/consume
func (h *ConsumptionHandler) Consume(c *gin.Context) {
	var req service.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	usage, err := h.svc.Consume(c.Request.Context(), GetTenantID(c), c.Param("lot_id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, usage)
}

// ConsumeRemnant cuts pieces from an offcut.
// POST /api/v1/stock/remnants/:id/consume
func (h *ConsumptionHandler) ConsumeRemnant(c *gin.Context) {
	var req service.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	usage, err := h.svc.ConsumeRemnant(c.Request.Context(), GetTenantID(c), c.Param("id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, usage)
}

// ConsumeSheet books area off a plate.
// POST /api/v1/stock/sheets/:sheet_id/consume
func (h *ConsumptionHandler) ConsumeSheet(c *gin.Context) {
	var req service.ConsumeSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	usage, err := h.svc.ConsumeSheet(c.Request.Context(), GetTenantID(c), c.Param("sheet_id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, usage)
}
