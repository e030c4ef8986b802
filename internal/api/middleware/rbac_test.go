package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/registry"
)

type fakeResolver struct {
	matrix permission.Matrix
	err    error
	calls  int
}

func (f *fakeResolver) EffectivePermissions(_ context.Context, _ int64, _ []int64) (permission.Matrix, error) {
	f.calls++
	return f.matrix, f.err
}

func rolesViewer(t *testing.T) permission.Matrix {
	t.Helper()
	m, err := permission.Initialize(registry.Default().Entries())
	require.NoError(t, err)
	m, err = m.Set(registry.ModuleRoles, permission.FlagView, true)
	require.NoError(t, err)
	return m
}

func runRBAC(t *testing.T, p *Principal, resolver PermissionResolver, flags ...permission.Flag) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if p != nil {
			c.Request = c.Request.WithContext(SetPrincipal(c.Request.Context(), *p))
		}
		c.Next()
	})
	router.GET("/roles",
		RequireModuleAccess(resolver, registry.ModuleRoles, flags...),
		func(c *gin.Context) {
			called = true
			c.Status(http.StatusOK)
		},
	)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roles", nil))
	return w, called
}

func TestRequireModuleAccess(t *testing.T) {
	staff := &Principal{UserID: "u-2", RestaurantID: 3, RoleIDs: []int64{10}}
	admin := &Principal{UserID: "root", SuperAdmin: true}

	tests := []struct {
		name       string
		principal  *Principal
		flags      []permission.Flag
		wantStatus int
		wantCode   string
	}{
		{"granted view", staff, []permission.Flag{permission.FlagView}, http.StatusOK, ""},
		{"missing delete", staff, []permission.Flag{permission.FlagView, permission.FlagDelete}, http.StatusForbidden, apperrors.CodeForbidden},
		{"super admin bypasses", admin, []permission.Flag{permission.FlagDelete}, http.StatusOK, ""},
		{"unauthenticated", nil, []permission.Flag{permission.FlagView}, http.StatusUnauthorized, apperrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resolver := &fakeResolver{matrix: rolesViewer(t)}

			w, called := runRBAC(t, tt.principal, resolver, tt.flags...)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantCode != "" {
				var body errorEnvelope
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body.Code)
			}
		})
	}
}

func TestRequireModuleAccess_ResolverError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("db down")}
	w, called := runRBAC(t, &Principal{UserID: "u-2", RestaurantID: 3}, resolver, permission.FlagView)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, called)
}

func TestCheckModuleAccess_ResolvesOncePerRequest(t *testing.T) {
	resolver := &fakeResolver{matrix: rolesViewer(t)}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = c.Request.WithContext(SetPrincipal(c.Request.Context(), Principal{UserID: "u-2", RestaurantID: 3}))

	require.NoError(t, CheckModuleAccess(c, resolver, registry.ModuleRoles, permission.FlagView))
	err := CheckModuleAccess(c, resolver, registry.ModuleRoles, permission.FlagEdit)
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	assert.Equal(t, string(permission.FlagEdit), appErr.Params["action"])
	assert.Equal(t, 1, resolver.calls)

	m, ok := EffectivePermissions(c)
	require.True(t, ok)
	assert.True(t, m.Allows(registry.ModuleRoles, permission.FlagView))
}
