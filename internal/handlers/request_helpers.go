package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/authz"
	"crm/internal/middleware"
)

// respondError is the single place where operation errors become responses.
func respondError(c *gin.Context, logger *zap.Logger, route string, err error) {
	appErr := apperr.From(err)
	status := appErr.Kind.HTTPStatus()

	body := gin.H{"error": appErr.Message}
	details := append([]string(nil), appErr.Details...)
	if appErr.Kind == apperr.KindInternal && appErr.Err != nil {
		details = append(details, appErr.Err.Error())
	}
	if len(details) > 0 {
		body["details"] = details
	}

	fields := []zap.Field{
		zap.String("route", route),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Int("status", status),
		zap.String("kind", appErr.Kind.String()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// respondValidationError reports binding failures field by field.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": []string{err.Error()}})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// caller returns the authenticated identity or answers 401.
func caller(c *gin.Context) (authz.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return authz.Identity{}, false
	}
	return id, true
}
