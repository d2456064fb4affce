package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return uint(value), true
}

// writeError maps service errors onto HTTP statuses: invalid input 400,
// missing records 404, reorder conflicts 409, publish validation 422.
func writeError(c *gin.Context, err error) {
	if publishErr, ok := service.IsPublishError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "course is not publishable",
			"issues": publishErr.Issues,
		})
		return
	}

	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrderMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "submitted order does not match the course blocks"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
