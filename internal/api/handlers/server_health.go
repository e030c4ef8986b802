package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/pkg/logger"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string, len(s.checks))
	allHealthy := true

	for name, p := range s.checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "error"
			allHealthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status": status,
		"checks": checks,
	})
}
