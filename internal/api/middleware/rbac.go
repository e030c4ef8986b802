package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
)

const ctxKeyEffective = "effective_permissions"

// PermissionResolver merges the grants of the caller's roles.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, restaurantID int64, roleIDs []int64) (permission.Matrix, error)
}

// RequireModuleAccess returns middleware that allows the request only when
// the caller's effective matrix grants every flag on module.
// Super admins bypass the check.
func RequireModuleAccess(resolver PermissionResolver, module string, flags ...permission.Flag) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := CheckModuleAccess(c, resolver, module, flags...); err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				appErr = apperrors.Internal(apperrors.CodeInternal, "permission check failed")
			}
			AbortWithError(c, appErr)
			return
		}
		c.Next()
	}
}

// CheckModuleAccess is the handler-level form of RequireModuleAccess, for
// endpoints whose required flag depends on the request body.
func CheckModuleAccess(c *gin.Context, resolver PermissionResolver, module string, flags ...permission.Flag) error {
	p, ok := GetPrincipal(c.Request.Context())
	if !ok {
		return apperrors.Unauthorized(apperrors.CodeUnauthorized, "authentication required")
	}
	if p.SuperAdmin {
		return nil
	}

	m, err := effectiveMatrix(c, resolver, p)
	if err != nil {
		return err
	}
	for _, f := range flags {
		if !m.Allows(module, f) {
			logger.Warn("module access denied",
				zap.String("user_id", p.UserID),
				zap.Int64("restaurant_id", p.RestaurantID),
				zap.String("module", module),
				zap.String("flag", string(f)),
			)
			return apperrors.Forbidden(apperrors.CodeForbidden, "insufficient permissions").
				WithParams(map[string]interface{}{"module": module, "action": string(f)})
		}
	}
	return nil
}

// EffectivePermissions returns the matrix resolved earlier in the chain.
func EffectivePermissions(c *gin.Context) (permission.Matrix, bool) {
	v, ok := c.Get(ctxKeyEffective)
	if !ok {
		return permission.Matrix{}, false
	}
	m, ok := v.(permission.Matrix)
	return m, ok
}

// effectiveMatrix resolves the matrix once per request.
func effectiveMatrix(c *gin.Context, resolver PermissionResolver, p Principal) (permission.Matrix, error) {
	if m, ok := EffectivePermissions(c); ok {
		return m, nil
	}
	m, err := resolver.EffectivePermissions(c.Request.Context(), p.RestaurantID, p.RoleIDs)
	if err != nil {
		return permission.Matrix{}, err
	}
	c.Set(ctxKeyEffective, m)
	return m, nil
}
