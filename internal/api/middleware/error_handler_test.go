package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

type errorEnvelope struct {
	Status      string                 `json:"status"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	FieldErrors []apperrors.FieldError `json:"field_errors"`
	Params      map[string]interface{} `json:"params"`
}

func serveError(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, errorEnvelope) {
	t.Helper()
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/x", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body errorEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestErrorHandler_NoErrors(t *testing.T) {
	w, _ := serveError(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandler_AppError(t *testing.T) {
	w, body := serveError(t, func(c *gin.Context) {
		_ = c.Error(apperrors.ErrRoleNotFound())
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, apperrors.CodeRoleNotFound, body.Code)
	assert.Empty(t, body.FieldErrors)
}

func TestErrorHandler_FieldErrorsAndParams(t *testing.T) {
	w, body := serveError(t, func(c *gin.Context) {
		_ = c.Error(apperrors.FromPermissionError(fmt.Errorf("save: %w", permission.ErrNoPermissionsGranted)))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, body.FieldErrors, 1)
	assert.Equal(t, apperrors.FieldPermissions, body.FieldErrors[0].Field)
	assert.Equal(t, "At least one permission must be selected", body.FieldErrors[0].Message)

	w, body = serveError(t, func(c *gin.Context) {
		_ = c.Error(apperrors.ErrRoleNameExists("Cashier"))
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cashier", body.Params["name"])
}

func TestErrorHandler_GenericError(t *testing.T) {
	w, body := serveError(t, func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("something unexpected"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.CodeInternal, body.Code)
	assert.Equal(t, StatusError, body.Status)
}

func TestErrorHandler_ResponseAlreadyWritten(t *testing.T) {
	w, _ := serveError(t, func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "success"})
		_ = c.Error(fmt.Errorf("late failure"))
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
}
