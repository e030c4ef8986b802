// Package handlers implements the back-office HTTP endpoints.
//
// Handlers bind and scope the request, call the role service and render
// the success envelope. Errors go through c.Error and are rendered by
// middleware.ErrorHandler. RegisterRoutes mounts them with their RBAC guards.
//
// Import Path: dinehub.io/backoffice/internal/api/handlers
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/service"
)

// StatusSuccess is the "status" value of every success envelope.
const StatusSuccess = "success"

// RoleService is the use-case surface the handlers depend on.
type RoleService interface {
	middleware.PermissionResolver

	Modules() []permission.ModuleEntry
	NewDraft(ctx context.Context) (permission.Matrix, error)
	Toggle(m permission.Matrix, module, flag string, value bool) (permission.Matrix, error)
	Save(ctx context.Context, actor string, in service.SaveRoleInput) (*service.RoleDetail, error)
	Get(ctx context.Context, restaurantID, id int64) (*service.RoleDetail, error)
	List(ctx context.Context, restaurantID int64, in service.ListRolesInput) (*domain.RoleList, error)
	Delete(ctx context.Context, actor string, restaurantID, id int64) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	roles  RoleService
	checks map[string]Pinger
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Roles RoleService
	// Checks are probed by the readiness endpoint, keyed by name.
	Checks map[string]Pinger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		roles:  deps.Roles,
		checks: deps.Checks,
	}
}

// Resolver exposes the permission resolver for route-level RBAC.
func (s *Server) Resolver() middleware.PermissionResolver {
	return s.roles
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"status":  StatusSuccess,
		"message": message,
		"data":    data,
	})
}

func principal(c *gin.Context) (middleware.Principal, error) {
	p, ok := middleware.GetPrincipal(c.Request.Context())
	if !ok {
		return middleware.Principal{}, apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

// restaurantScope picks the restaurant a request acts on. Staff are pinned
// to the restaurant in their token; super admins choose one explicitly.
func restaurantScope(c *gin.Context, requested int64) (middleware.Principal, int64, error) {
	p, err := principal(c)
	if err != nil {
		return p, 0, err
	}
	if p.SuperAdmin {
		if requested > 0 {
			return p, requested, nil
		}
		if p.RestaurantID > 0 {
			return p, p.RestaurantID, nil
		}
		return p, 0, apperrors.BadRequest(apperrors.CodeInvalidRequest, "restaurantId is required")
	}
	if requested > 0 && requested != p.RestaurantID {
		return p, 0, apperrors.Forbidden(apperrors.CodeForbidden, "role belongs to another restaurant")
	}
	if p.RestaurantID <= 0 {
		return p, 0, apperrors.Forbidden(apperrors.CodeForbidden, "token is not bound to a restaurant")
	}
	return p, p.RestaurantID, nil
}

func queryRestaurantID(c *gin.Context) (int64, error) {
	raw := c.Query("restaurantId")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(apperrors.CodeInvalidRequest, "restaurantId must be a positive integer")
	}
	return id, nil
}

func pathRoleID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(apperrors.CodeInvalidRequest, "role id must be a positive integer")
	}
	return id, nil
}

// fail records err for the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badJSON(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeInvalidRequest, "request body is not valid JSON", http.StatusBadRequest)
}
