package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/registry"
	"dinehub.io/backoffice/internal/service"
	"dinehub.io/backoffice/internal/testutil"
)

func TestBuildCORSConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		server          config.ServerConfig
		wantAllOrigins  bool
		wantCredentials bool
		wantOrigins     []string
	}{
		{
			name:            "empty origins fall back to dev allowlist",
			server:          config.ServerConfig{AllowCredentials: true},
			wantCredentials: true,
			wantOrigins:     defaultAllowedOrigins,
		},
		{
			name: "wildcard stripped unless unsafe flag enabled",
			server: config.ServerConfig{
				AllowedOrigins:   []string{"*", "https://example.com"},
				AllowCredentials: true,
			},
			wantCredentials: true,
			wantOrigins:     []string{"https://example.com"},
		},
		{
			name:            "wildcard only falls back to dev allowlist",
			server:          config.ServerConfig{AllowedOrigins: []string{"*"}},
			wantOrigins:     defaultAllowedOrigins,
		},
		{
			name:        "origins without scheme are ignored",
			server:      config.ServerConfig{AllowedOrigins: []string{"pos.dinehub.io", " https://pos.dinehub.io "}},
			wantOrigins: []string{"https://pos.dinehub.io"},
		},
		{
			name: "unsafe allow all disables credentials",
			server: config.ServerConfig{
				AllowedOrigins:        []string{"*"},
				AllowCredentials:      true,
				UnsafeAllowAllOrigins: true,
			},
			wantAllOrigins: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := buildCORSConfig(&config.Config{Server: tt.server})
			assert.Equal(t, tt.wantAllOrigins, got.AllowAllOrigins)
			assert.Equal(t, tt.wantCredentials, got.AllowCredentials)
			if tt.wantOrigins == nil {
				assert.Empty(t, got.AllowOrigins)
			} else {
				assert.Equal(t, tt.wantOrigins, got.AllowOrigins)
			}
			assert.NoError(t, got.Validate())
		})
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, middleware.JWTConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewRoleService(testutil.NewMemoryRoleRepository(), registry.Default(), nil, nil)
	server := handlers.NewServer(handlers.ServerDeps{Roles: svc})
	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte("router-test-signing-key-0123456789"),
		Issuer:     "dinehub-backoffice",
		ExpiresIn:  time.Hour,
	}
	return newRouter(&config.Config{}, server, jwtCfg), jwtCfg
}

func TestRouter_Routes(t *testing.T) {
	router, jwtCfg := newTestRouter(t)

	rootToken, _, err := middleware.GenerateToken(jwtCfg, middleware.Principal{
		UserID:     "u-root",
		Username:   "root",
		SuperAdmin: true,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "liveness is public", method: http.MethodGet, path: "/api/v1/health/live", want: http.StatusOK},
		{name: "modules need a token", method: http.MethodGet, path: "/api/v1/modules", want: http.StatusUnauthorized},
		{name: "super admin lists modules", method: http.MethodGet, path: "/api/v1/modules", token: rootToken, want: http.StatusOK},
		{name: "super admin opens a draft", method: http.MethodGet, path: "/api/v1/roles/draft", token: rootToken, want: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", token: rootToken, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/roles/list", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
