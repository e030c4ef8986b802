package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/registry"
	"dinehub.io/backoffice/internal/service"
)

// toggleRequest carries one checkbox change on a matrix held by the client.
type toggleRequest struct {
	Matrix permission.Matrix `json:"matrix"`
	Module string            `json:"module"`
	Flag   string            `json:"flag"`
	Value  *bool             `json:"value"`
}

type listRolesRequest struct {
	RestaurantID int64  `json:"restaurantId"`
	Search       string `json:"search"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

// saveRoleRequest accepts "permission" as an alias of "permissions".
type saveRoleRequest struct {
	RoleID       int64                       `json:"roleId"`
	RestaurantID int64                       `json:"restaurantId"`
	Name         string                      `json:"name"`
	Status       domain.RoleStatus           `json:"status"`
	Permissions  []permission.FlatPermission `json:"permissions"`
	Permission   []permission.FlatPermission `json:"permission"`
}

func (r saveRoleRequest) rows() []permission.FlatPermission {
	if r.Permissions == nil {
		return r.Permission
	}
	return r.Permissions
}

// ListModules handles GET /modules.
func (s *Server) ListModules(c *gin.Context) {
	respond(c, http.StatusOK, "Modules fetched", s.roles.Modules())
}

// GetRoleDraft handles GET /roles/draft.
func (s *Server) GetRoleDraft(c *gin.Context) {
	m, err := s.roles.NewDraft(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Draft created", m)
}

// ToggleRolePermission handles POST /roles/matrix/toggle.
func (s *Server) ToggleRolePermission(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if appErr := apperrors.FromPermissionError(err); appErr != nil {
			fail(c, appErr)
			return
		}
		fail(c, badJSON(err))
		return
	}
	if req.Value == nil {
		fail(c, apperrors.BadRequest(apperrors.CodeInvalidRequest, "value is required"))
		return
	}

	m, err := s.roles.Toggle(req.Matrix, req.Module, req.Flag, *req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Permission updated", m)
}

// ListRoles handles POST /roles/list.
func (s *Server) ListRoles(c *gin.Context) {
	var req listRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badJSON(err))
		return
	}
	_, restaurantID, err := restaurantScope(c, req.RestaurantID)
	if err != nil {
		fail(c, err)
		return
	}

	list, err := s.roles.List(c.Request.Context(), restaurantID, service.ListRolesInput{
		Search: req.Search,
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Roles fetched", list)
}

// GetRole handles GET /roles/:id.
func (s *Server) GetRole(c *gin.Context) {
	id, err := pathRoleID(c)
	if err != nil {
		fail(c, err)
		return
	}
	requested, err := queryRestaurantID(c)
	if err != nil {
		fail(c, err)
		return
	}
	_, restaurantID, err := restaurantScope(c, requested)
	if err != nil {
		fail(c, err)
		return
	}

	detail, err := s.roles.Get(c.Request.Context(), restaurantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Role fetched", detail)
}

// SaveRole handles POST /roles/save. Creating needs create on the roles
// module, updating needs edit.
func (s *Server) SaveRole(c *gin.Context) {
	var req saveRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badJSON(err))
		return
	}
	p, restaurantID, err := restaurantScope(c, req.RestaurantID)
	if err != nil {
		fail(c, err)
		return
	}

	flag, status, message := permission.FlagCreate, http.StatusCreated, "Role created"
	if req.RoleID > 0 {
		flag, status, message = permission.FlagEdit, http.StatusOK, "Role updated"
	}
	if err := middleware.CheckModuleAccess(c, s.roles, registry.ModuleRoles, flag); err != nil {
		fail(c, err)
		return
	}

	detail, err := s.roles.Save(c.Request.Context(), p.Actor(), service.SaveRoleInput{
		RoleID:       req.RoleID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Status:       req.Status,
		Permissions:  req.rows(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, status, message, detail)
}

// DeleteRole handles DELETE /roles/delete/:id.
func (s *Server) DeleteRole(c *gin.Context) {
	id, err := pathRoleID(c)
	if err != nil {
		fail(c, err)
		return
	}
	requested, err := queryRestaurantID(c)
	if err != nil {
		fail(c, err)
		return
	}
	p, restaurantID, err := restaurantScope(c, requested)
	if err != nil {
		fail(c, err)
		return
	}

	if err := s.roles.Delete(c.Request.Context(), p.Actor(), restaurantID, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Role deleted", gin.H{"roleId": id})
}
