package api

import (
	"errors"
	"net/http"

	"retail-inventory/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised on contention responses
const retryAfterSeconds = "1"

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// writeError maps the service error taxonomy onto HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var stockErr *models.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
			"details": gin.H{
				"field":   validationErr.Field,
				"message": validationErr.Message,
			},
		})

	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid input",
			"details": err.Error(),
		})

	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient stock",
			"details": gin.H{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			},
		})

	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"details": err.Error(),
		})

	case errors.Is(err, models.ErrContention):
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Resource busy, retry the request",
			"details": err.Error(),
		})

	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": "the request could not be completed",
		})
	}
}
