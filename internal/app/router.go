package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/pkg/logger"
)

const apiBasePath = "/api/v1"

// defaultAllowedOrigins are the local back-office dev servers.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		cors.New(buildCORSConfig(cfg)),
		middleware.MustOpenAPIValidator(apiBasePath),
		middleware.ErrorHandler(),
	)

	server.RegisterRoutes(router.Group(apiBasePath), middleware.JWTAuth(jwtCfg))
	return router
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		logger.Warn("CORS allows every origin, credentials are disabled")
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
		case origin == "*":
			logger.Warn("CORS wildcard origin ignored, set unsafe_allow_all_origins to enable it")
		case !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://"):
			logger.Warn("CORS origin ignored, scheme required", zap.String("origin", origin))
		default:
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
