package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/petersonmatiss/mpm/internal/apperror"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/procurement/service"
)

// Handlers is the procurement handler collection.
type Handlers struct {
	PR *PRHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{PR: NewPRHandler(services.PR)}
}

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// RespondError maps the service error taxonomy onto the response envelope.
// State-machine violations surface as 409, missing preconditions as 422.
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperror.ErrMissingReason):
		Error(c, 40001, err.Error())
	case apperror.IsValidation(err):
		Error(c, 40000, err.Error())
	case errors.Is(err, apperror.ErrNotFound):
		Error(c, 40400, err.Error())
	case apperror.IsDuplicateIdentity(err):
		Error(c, 40900, err.Error())
	case errors.Is(err, apperror.ErrConflict):
		Error(c, 40901, err.Error())
	case apperror.IsInvalidTransition(err):
		Error(c, 40902, err.Error())
	case errors.Is(err, apperror.ErrMissingWinner):
		Error(c, 42201, err.Error())
	default:
		Error(c, 50000, err.Error())
	}
}

func GetTenantID(c *gin.Context) string {
	v, _ := c.Get("tenant_id")
	if id, ok := v.(string); ok {
		return id
	}
	return ""
}

func GetActor(c *gin.Context) auditentity.Actor {
	actor := auditentity.Actor{}
	if v, ok := c.Get("user_id"); ok {
		actor.ID, _ = v.(string)
	}
	if v, ok := c.Get("user_name"); ok {
		actor.Name, _ = v.(string)
	}
	if v, ok := c.Get("request_id"); ok {
		actor.CorrelationID, _ = v.(string)
	}
	return actor
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}
