package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"

	"github.com/gin-gonic/gin"
)

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodePrecondition:
		return http.StatusConflict
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodePartialWrite:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Classified errors keep their message; anything
// else is logged and reported as an internal error. data, when non-nil, is
// returned next to a partial write so the caller can see what was persisted.
func respondError(c *gin.Context, log logger.Logger, err error, data interface{}) {
	var partial *apperrors.PartialWriteError
	if errors.As(err, &partial) {
		log.WithError(err).Error("partial write", map[string]interface{}{
			"path":      c.FullPath(),
			"operation": partial.Operation,
		})
		body := gin.H{
			"error":     partial.Error(),
			"code":      apperrors.CodePartialWrite,
			"operation": partial.Operation,
			"written":   partial.Written,
			"total":     partial.Total,
			"remaining": partial.Remaining,
		}
		if data != nil {
			body["data"] = data
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		c.JSON(statusFor(appErr.Code), body)
		return
	}

	log.WithError(err).Error("request failed", map[string]interface{}{"path": c.FullPath()})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
}

// parseID reads a positive numeric path parameter and writes a 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parseOptionalID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
