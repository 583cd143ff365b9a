package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/audit/service"
)

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

type response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondError(c *gin.Context, err error) {
	switch {
	case apperror.IsValidation(err):
		c.JSON(400, response{Code: 40000, Message: err.Error()})
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(404, response{Code: 40400, Message: err.Error()})
	default:
		c.JSON(500, response{Code: 50000, Message: err.Error()})
	}
}

func tenantID(c *gin.Context) string {
	v, _ := c.Get("tenant_id")
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}

// ListByEntity returns the trail of one entity.
// GET /api/v1/audit/:entity_type/:entity_id
func (h *AuditHandler) ListByEntity(c *gin.Context) {
	items, err := h.svc.ListByEntity(c.Request.Context(), tenantID(c),
		c.Param("entity_type"), c.Param("entity_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, response{Code: 0, Message: "success", Data: gin.H{"items": items}})
}

// ListByActor returns one actor's activity in a time window.
// GET /api/v1/audit/actors/:actor_id?from=2026-08-01T00:00:00Z&to=2026-08-28T00:00:00Z
func (h *AuditHandler) ListByActor(c *gin.Context) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, apperror.Validation("from", "must be RFC3339"))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, apperror.Validation("to", "must be RFC3339"))
			return
		}
		to = t
	}

	items, err := h.svc.ListByActor(c.Request.Context(), tenantID(c), c.Param("actor_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, response{Code: 0, Message: "success", Data: gin.H{"items": items}})
}
