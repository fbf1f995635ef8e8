package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimishshah/portfolio_engine/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// respondErr maps service errors to HTTP statuses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, "portfolio not found", nil)
	case errors.Is(err, service.ErrSellExceedsHolding):
		Error(c, http.StatusBadRequest, "sell quantity exceeds current holding", nil)
	case errors.Is(err, service.ErrValidation):
		Error(c, http.StatusBadRequest, "validation failed", nil)
	case errors.Is(err, service.ErrAlreadyExists):
		Error(c, http.StatusConflict, "already exists", nil)
	default:
		Error(c, http.StatusInternalServerError, "internal error", nil)
	}
}
