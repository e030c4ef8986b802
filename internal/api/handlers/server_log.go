package handlers

import (
	"github.com/gin-gonic/gin"

	"dinehub.io/backoffice/internal/pkg/logger"
)

// LogLevel handles GET and PUT /log/level through zap's AtomicLevel.
func (s *Server) LogLevel(c *gin.Context) {
	logger.HTTPHandler().ServeHTTP(c.Writer, c.Request)
}
