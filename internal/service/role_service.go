// Package service holds the back-office use cases on roles.
//
// Import Path: dinehub.io/backoffice/internal/service
package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/jobs"
	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/registry"
	"dinehub.io/backoffice/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PermissionCache caches the effective rows of single roles.
type PermissionCache interface {
	Get(ctx context.Context, restaurantID, roleID int64) ([]permission.FlatPermission, bool, error)
	Set(ctx context.Context, restaurantID, roleID int64, rows []permission.FlatPermission) error
	Invalidate(ctx context.Context, restaurantID, roleID int64) error
}

// AuditEnqueuer schedules audit records for role changes.
type AuditEnqueuer interface {
	EnqueueRoleAudit(ctx context.Context, args jobs.RoleAuditArgs)
}

// SaveRoleInput is the create-or-update payload. RoleID 0 creates.
type SaveRoleInput struct {
	RoleID       int64                       `json:"roleId" validate:"gte=0"`
	RestaurantID int64                       `json:"restaurantId" validate:"gt=0"`
	Name         string                      `json:"name" validate:"required,min=2,max=100"`
	Status       domain.RoleStatus           `json:"status" validate:"required,oneof=active inactive pending"`
	Permissions  []permission.FlatPermission `json:"permissions"`
}

// ListRolesInput selects one page of roles.
type ListRolesInput struct {
	Search string `json:"search"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

// RoleDetail is a role with its permissions in both shapes.
type RoleDetail struct {
	*domain.Role
	Matrix permission.Matrix `json:"matrix"`
}

// RoleService implements role management on top of the permission engine.
type RoleService struct {
	repo     repository.RoleRepository
	registry *registry.Registry
	cache    PermissionCache
	audit    AuditEnqueuer
	validate *validator.Validate
}

// NewRoleService creates a RoleService. cache and audit may be nil.
func NewRoleService(repo repository.RoleRepository, reg *registry.Registry, cache PermissionCache, audit AuditEnqueuer) *RoleService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RoleService{
		repo:     repo,
		registry: reg,
		cache:    cache,
		audit:    audit,
		validate: v,
	}
}

// Modules returns the module registry, ordered by id.
func (s *RoleService) Modules() []permission.ModuleEntry {
	return s.registry.Entries()
}

// NewDraft returns an all-false matrix covering every registered module.
func (s *RoleService) NewDraft(_ context.Context) (permission.Matrix, error) {
	m, err := permission.Initialize(s.registry.Entries())
	if err != nil {
		return permission.Matrix{}, mapPermissionErr(err)
	}
	return m, nil
}

// Toggle applies one checkbox change to a matrix held by the client.
func (s *RoleService) Toggle(m permission.Matrix, module, flag string, value bool) (permission.Matrix, error) {
	f, err := permission.ParseFlag(flag)
	if err != nil {
		return permission.Matrix{}, mapPermissionErr(err)
	}
	next, err := m.Set(module, f, value)
	if err != nil {
		return permission.Matrix{}, mapPermissionErr(err)
	}
	return next, nil
}

// Save validates and stores a role, then invalidates its cache entry and
// enqueues an audit record.
func (s *RoleService) Save(ctx context.Context, actor string, in SaveRoleInput) (*RoleDetail, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	resolved, err := permission.ResolveModuleIDs(in.Permissions, s.registry)
	if err != nil {
		return nil, mapPermissionErr(err)
	}
	m, err := permission.Unflatten(resolved)
	if err != nil {
		return nil, mapPermissionErr(err)
	}
	if err := permission.Validate(m); err != nil {
		return nil, mapPermissionErr(err)
	}

	role := &domain.Role{
		ID:           in.RoleID,
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Status:       in.Status,
		Permissions:  permission.Flatten(m),
	}
	action := domain.RoleActionCreated
	if in.RoleID == 0 {
		role.CreatedBy = actor
		err = s.repo.Create(ctx, role)
	} else {
		action = domain.RoleActionUpdated
		role.UpdatedBy = actor
		err = s.repo.Update(ctx, role)
	}
	if err != nil {
		return nil, mapRepoErr(err, role.Name)
	}

	s.invalidate(ctx, role.RestaurantID, role.ID)
	s.enqueueAudit(ctx, action, role, actor)

	logger.ForRole(role.RestaurantID, role.ID).Info("role saved",
		zap.String("action", string(action)),
		zap.String("actor", actor),
		zap.Int("granted_modules", m.Granted()),
	)
	return &RoleDetail{Role: role, Matrix: permission.Reconcile(m, s.registry.Entries())}, nil
}

// Get loads a role and rebuilds its matrix against the current registry.
// Modules registered after the role was saved appear all-false; rows of
// modules no longer registered are dropped, so the result saves back as is.
func (s *RoleService) Get(ctx context.Context, restaurantID, id int64) (*RoleDetail, error) {
	role, err := s.repo.Get(ctx, restaurantID, id)
	if err != nil {
		return nil, mapRepoErr(err, "")
	}
	m, err := permission.Unflatten(role.Permissions)
	if err != nil {
		return nil, mapPermissionErr(err)
	}
	m = permission.Reconcile(m, s.registry.Entries())
	role.Permissions = permission.Flatten(m)
	return &RoleDetail{Role: role, Matrix: m}, nil
}

// List returns one page of role summaries.
func (s *RoleService) List(ctx context.Context, restaurantID int64, in ListRolesInput) (*domain.RoleList, error) {
	if restaurantID <= 0 {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequest, "restaurantId is required")
	}
	page := max(in.Page, 1)
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}

	items, total, err := s.repo.List(ctx, domain.RoleFilter{
		RestaurantID: restaurantID,
		Search:       strings.TrimSpace(in.Search),
		Offset:       (page - 1) * limit,
		Limit:        limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list roles", http.StatusInternalServerError)
	}
	if items == nil {
		items = []domain.RoleSummary{}
	}
	return &domain.RoleList{Items: items, TotalCount: total, Page: page, Limit: limit}, nil
}

// Delete removes a role.
func (s *RoleService) Delete(ctx context.Context, actor string, restaurantID, id int64) error {
	role, err := s.repo.Get(ctx, restaurantID, id)
	if err != nil {
		return mapRepoErr(err, "")
	}
	if err := s.repo.Delete(ctx, restaurantID, id); err != nil {
		return mapRepoErr(err, "")
	}
	s.invalidate(ctx, restaurantID, id)
	s.enqueueAudit(ctx, domain.RoleActionDeleted, role, actor)
	return nil
}

// EffectivePermissions merges the grants of the given roles. Roles that
// are not active, or do not exist in the restaurant, grant nothing.
func (s *RoleService) EffectivePermissions(ctx context.Context, restaurantID int64, roleIDs []int64) (permission.Matrix, error) {
	var (
		sets   = make([][]permission.FlatPermission, 0, len(roleIDs))
		misses []int64
	)
	for _, id := range roleIDs {
		rows, ok := s.cachedRows(ctx, restaurantID, id)
		if ok {
			sets = append(sets, rows)
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		roles, err := s.repo.GetMany(ctx, restaurantID, misses)
		if err != nil {
			return permission.Matrix{}, apperrors.Wrap(err, apperrors.CodeInternal, "failed to load roles", http.StatusInternalServerError)
		}
		for _, role := range roles {
			rows := []permission.FlatPermission{}
			if role.Status == domain.RoleStatusActive {
				rows = role.Permissions
			}
			if s.cache != nil {
				if err := s.cache.Set(ctx, restaurantID, role.ID, rows); err != nil {
					logger.Warn("permission cache set failed", zap.Int64("role_id", role.ID), zap.Error(err))
				}
			}
			sets = append(sets, rows)
		}
	}

	matrices := make([]permission.Matrix, 0, len(sets))
	for _, rows := range sets {
		m, err := permission.Unflatten(rows)
		if err != nil {
			logger.Warn("skipping role with unreadable permissions",
				zap.Int64("restaurant_id", restaurantID),
				zap.Error(err),
			)
			continue
		}
		matrices = append(matrices, m)
	}
	return permission.Union(matrices...), nil
}

func (s *RoleService) cachedRows(ctx context.Context, restaurantID, roleID int64) ([]permission.FlatPermission, bool) {
	if s.cache == nil {
		return nil, false
	}
	rows, ok, err := s.cache.Get(ctx, restaurantID, roleID)
	if err != nil {
		logger.Warn("permission cache get failed", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, false
	}
	return rows, ok
}

func (s *RoleService) invalidate(ctx context.Context, restaurantID, roleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, restaurantID, roleID); err != nil {
		logger.Warn("permission cache invalidate failed",
			zap.Int64("restaurant_id", restaurantID),
			zap.Int64("role_id", roleID),
			zap.Error(err),
		)
	}
}

func (s *RoleService) enqueueAudit(ctx context.Context, action domain.RoleAction, role *domain.Role, actor string) {
	if s.audit == nil {
		return
	}
	s.audit.EnqueueRoleAudit(ctx, jobs.RoleAuditArgs{
		RoleID:         role.ID,
		RestaurantID:   role.RestaurantID,
		RoleName:       role.Name,
		Action:         action,
		Actor:          actor,
		GrantedModules: role.GrantedModules(),
	})
}

func mapPermissionErr(err error) error {
	if appErr := apperrors.FromPermissionError(err); appErr != nil {
		return appErr
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "permission matrix error", http.StatusInternalServerError)
}

func mapRepoErr(err error, name string) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return apperrors.ErrRoleNotFound()
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return apperrors.ErrRoleNameExists(name)
	}
	return apperrors.Wrap(err, apperrors.CodeRoleSaveFailed, "failed to save role", http.StatusInternalServerError)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.BadRequest(apperrors.CodeInvalidRequest, err.Error())
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   fe.Field(),
			Code:    apperrors.CodeValidationFailed,
			Message: validationMessage(fe),
		})
	}
	return apperrors.BadRequest(apperrors.CodeValidationFailed, "request validation failed").WithFieldErrors(fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	}
	return fe.Field() + " is invalid"
}
