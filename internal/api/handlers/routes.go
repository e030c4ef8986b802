package handlers

import (
	"github.com/gin-gonic/gin"

	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/permission"
	"dinehub.io/backoffice/internal/registry"
)

// RegisterRoutes mounts every endpoint on api. auth guards everything but
// the health probes.
func (s *Server) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	api.GET("/health/live", s.GetLiveness)
	api.GET("/health/ready", s.GetReadiness)

	access := func(module string, flags ...permission.Flag) gin.HandlerFunc {
		return middleware.RequireModuleAccess(s.roles, module, flags...)
	}

	secured := api.Group("", auth)
	secured.GET("/modules", access(registry.ModuleRoles, permission.FlagView), s.ListModules)

	roles := secured.Group("/roles")
	roles.GET("/draft", access(registry.ModuleRoles, permission.FlagCreate), s.GetRoleDraft)
	roles.POST("/matrix/toggle", access(registry.ModuleRoles, permission.FlagView), s.ToggleRolePermission)
	roles.POST("/list", access(registry.ModuleRoles, permission.FlagView), s.ListRoles)
	roles.GET("/:id", access(registry.ModuleRoles, permission.FlagView), s.GetRole)
	// create or edit is decided from the body
	roles.POST("/save", s.SaveRole)
	roles.DELETE("/delete/:id", access(registry.ModuleRoles, permission.FlagDelete), s.DeleteRole)

	secured.GET("/log/level", access(registry.ModuleSettings, permission.FlagView), s.LogLevel)
	secured.PUT("/log/level", access(registry.ModuleSettings, permission.FlagEdit), s.LogLevel)
}
