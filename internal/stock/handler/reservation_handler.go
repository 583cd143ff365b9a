package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/stock/service"
)

// ReservationHandler holds and releases lot length.
type ReservationHandler struct {
	svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// Reserve holds length against a lot.
// POST /api/v1/stock/profiles/:lot_id/reserve
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req service.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reservation, err := h.svc.Reserve(c.Request.Context(), GetTenantID(c), c.Param("lot_id"), GetActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, reservation)
}

// Unreserve releases all holds on a lot.
// POST /api/v1/stock/profiles/:lot_id/unreserve
func (h *ReservationHandler) Unreserve(c *gin.Context) {
	err := h.svc.Unreserve(c.Request.Context(), GetTenantID(c), c.Param("lot_id"), GetActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ListReservations lists holds on a lot.
// GET /api/v1/stock/profiles/:lot_id/reservations
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	items, err := h.svc.ListByProfile(c.Request.Context(), GetTenantID(c), c.Param("lot_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}
