// Package middleware provides HTTP middleware for the back-office API.
//
// Import Path: dinehub.io/backoffice/internal/api/middleware
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
)

// StatusError is the "status" value of every error envelope.
const StatusError = "error"

// ErrorHandler is a Gin middleware that provides centralized error handling.
// It captures errors added via c.Error() and renders the error envelope.
// Register it after the OpenAPI validator so rendered errors are buffered
// and checked like any other response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				zap.String("code", appErr.Code),
				zap.Int("status", appErr.HTTPStatus),
				zap.String("request_id", GetRequestID(c.Request.Context())),
				zap.Error(appErr.Err),
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError || appErr.HTTPStatus == http.StatusUnprocessableEntity {
				logger.Error("Request error", fields...)
			} else {
				logger.Warn("Request error", fields...)
			}
			c.JSON(appErr.HTTPStatus, ErrorBody(appErr))
			return
		}

		logger.Error("Unhandled request error",
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorBody(
			apperrors.Internal(apperrors.CodeInternal, "An internal error occurred"),
		))
	}
}

// ErrorBody builds the error envelope for an AppError.
func ErrorBody(appErr *apperrors.AppError) gin.H {
	body := gin.H{
		"status":  StatusError,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.FieldErrors) > 0 {
		body["field_errors"] = appErr.FieldErrors
	}
	if len(appErr.Params) > 0 {
		body["params"] = appErr.Params
	}
	return body
}

// AbortWithError stops the chain and writes the error envelope directly.
// Used by middleware that runs before any handler.
func AbortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorBody(appErr))
}
