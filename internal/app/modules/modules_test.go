package modules

import (
	"context"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/registry"
	"dinehub.io/backoffice/internal/testutil"
)

func init() {
	_ = logger.Init("error", "json")
}

func newTestInfra() *Infrastructure {
	return &Infrastructure{
		Config:   &config.Config{},
		Registry: registry.Default(),
	}
}

func TestRoleModule_ContributeServerDeps(t *testing.T) {
	t.Parallel()

	mod := newRoleModule(newTestInfra(), testutil.NewMemoryRoleRepository())
	deps := NewServerDeps(nil, []Module{mod, nil})

	require.NotNil(t, deps.Roles)
	assert.Same(t, mod.Service(), deps.Roles)
	assert.Empty(t, deps.Checks)
	assert.Equal(t, "role", mod.Name())
	assert.NoError(t, mod.Shutdown(context.Background()))
}

func TestRoleModule_ServiceWorksWithoutCacheOrQueue(t *testing.T) {
	t.Parallel()

	mod := newRoleModule(newTestInfra(), testutil.NewMemoryRoleRepository())
	draft, err := mod.Service().NewDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(registry.Default().Entries()), draft.Len())
}

func TestRoleModule_RegisterWorkers(t *testing.T) {
	t.Parallel()

	mod := newRoleModule(newTestInfra(), testutil.NewMemoryRoleRepository())
	workers := river.NewWorkers()
	assert.NotPanics(t, func() { mod.RegisterWorkers(workers) })
}

func TestRoleModule_PeriodicJobs(t *testing.T) {
	t.Parallel()

	infra := newTestInfra()
	infra.Config.River.IntegrityScanInterval = time.Hour
	mod := newRoleModule(infra, testutil.NewMemoryRoleRepository())

	var _ PeriodicJobProvider = mod
	var _ RiverBinder = mod
	var _ ServerDepsContributor = mod

	assert.Len(t, mod.PeriodicJobs(), 1)
}

func TestNewServerDeps_Checks(t *testing.T) {
	t.Parallel()

	deps := NewServerDeps(&Infrastructure{}, nil)
	assert.Empty(t, deps.Checks)
	assert.Nil(t, deps.Roles)
}

func TestNewJWTConfig(t *testing.T) {
	t.Parallel()

	cfg := NewJWTConfig(config.SecurityConfig{
		JWTSigningKey:       "0123456789abcdef0123456789abcdef",
		JWTIssuer:           "dinehub-backoffice",
		JWTVerificationKeys: []string{" old-key ", "", "  "},
		TokenTTL:            8 * time.Hour,
	})

	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.SigningKey)
	assert.Equal(t, [][]byte{[]byte("old-key")}, cfg.VerificationKeys)
	assert.Equal(t, "dinehub-backoffice", cfg.Issuer)
	assert.Equal(t, 8*time.Hour, cfg.ExpiresIn)
}

func TestInfrastructure_NilSafe(t *testing.T) {
	t.Parallel()

	var infra *Infrastructure
	assert.NotPanics(t, infra.Close)
	assert.Error(t, infra.InitRiver(river.NewWorkers(), nil))
}
