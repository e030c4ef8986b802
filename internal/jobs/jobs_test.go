package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/permission"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/pkg/worker"
	"dinehub.io/backoffice/internal/registry"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestJobKinds(t *testing.T) {
	t.Parallel()

	if got := (RoleAuditArgs{}).Kind(); got != "role_audit" {
		t.Fatalf("Kind() = %q, want %q", got, "role_audit")
	}
	if got := (RoleIntegrityScanArgs{}).Kind(); got != "role_integrity_scan" {
		t.Fatalf("Kind() = %q, want %q", got, "role_integrity_scan")
	}
}

func TestRoleIntegrityScanArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (RoleIntegrityScanArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
	if opts.UniqueOpts.ByPeriod != time.Hour {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, time.Hour)
	}
}

type fakeAuditWriter struct {
	action       domain.RoleAction
	restaurantID int64
	roleID       int64
	actor        string
	details      map[string]interface{}
	err          error
}

func (f *fakeAuditWriter) LogRoleChange(_ context.Context, action domain.RoleAction, restaurantID, roleID int64, actor string, details map[string]interface{}) error {
	f.action, f.restaurantID, f.roleID, f.actor, f.details = action, restaurantID, roleID, actor, details
	return f.err
}

func TestRoleAuditWorkerWork(t *testing.T) {
	t.Parallel()

	args := RoleAuditArgs{
		RoleID:         42,
		RestaurantID:   3,
		RoleName:       "Cashier",
		Action:         domain.RoleActionCreated,
		Actor:          "owner@example.com",
		GrantedModules: 2,
	}

	t.Run("writes audit row", func(t *testing.T) {
		writer := &fakeAuditWriter{}
		err := NewRoleAuditWorker(writer).Work(context.Background(), &river.Job[RoleAuditArgs]{Args: args})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleActionCreated, writer.action)
		assert.EqualValues(t, 3, writer.restaurantID)
		assert.EqualValues(t, 42, writer.roleID)
		assert.Equal(t, "owner@example.com", writer.actor)
		assert.Equal(t, "Cashier", writer.details["role_name"])
	})

	t.Run("returns write error for retry", func(t *testing.T) {
		dbErr := errors.New("db down")
		err := NewRoleAuditWorker(&fakeAuditWriter{err: dbErr}).Work(context.Background(), &river.Job[RoleAuditArgs]{Args: args})
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("cancels job without action", func(t *testing.T) {
		bad := args
		bad.Action = ""
		err := NewRoleAuditWorker(&fakeAuditWriter{}).Work(context.Background(), &river.Job[RoleAuditArgs]{Args: bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no action")
	})

	t.Run("nil writer", func(t *testing.T) {
		err := (&RoleAuditWorker{}).Work(context.Background(), &river.Job[RoleAuditArgs]{Args: args})
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})
}

type fakeInserter struct {
	args []river.JobArgs
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.args = append(f.args, args)
	return &rivertype.JobInsertResult{}, f.err
}

func TestEnqueuer_EnqueueRoleAudit(t *testing.T) {
	t.Parallel()

	ins := &fakeInserter{}
	NewEnqueuer(ins).EnqueueRoleAudit(context.Background(), RoleAuditArgs{RoleID: 1, Action: domain.RoleActionDeleted})
	require.Len(t, ins.args, 1)
	assert.Equal(t, "role_audit", ins.args[0].Kind())

	// Insert failures are swallowed.
	NewEnqueuer(&fakeInserter{err: errors.New("queue down")}).EnqueueRoleAudit(context.Background(), RoleAuditArgs{})

	var nilEnqueuer *Enqueuer
	nilEnqueuer.EnqueueRoleAudit(context.Background(), RoleAuditArgs{})
	nilEnqueuer.Bind(ins)
}

func TestEnqueuer_BindLate(t *testing.T) {
	t.Parallel()

	e := NewEnqueuer(nil)
	e.EnqueueRoleAudit(context.Background(), RoleAuditArgs{RoleID: 1, Action: domain.RoleActionCreated})

	ins := &fakeInserter{}
	e.Bind(ins)
	e.EnqueueRoleAudit(context.Background(), RoleAuditArgs{RoleID: 2, Action: domain.RoleActionCreated})
	require.Len(t, ins.args, 1)
	assert.Equal(t, int64(2), ins.args[0].(RoleAuditArgs).RoleID)
}

type fakeRoleSource struct {
	roles []*domain.Role
	err   error
}

func (f fakeRoleSource) ListAll(context.Context) ([]*domain.Role, error) { return f.roles, f.err }

func newScanPool(t *testing.T) *worker.Pool {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)
	return pools.General
}

func TestRoleIntegrityScan(t *testing.T) {
	t.Parallel()

	roles := []*domain.Role{
		{ID: 1, RestaurantID: 1, Name: "Cashier", Permissions: []permission.FlatPermission{
			{ModuleID: 7, ModuleName: registry.ModuleOrders, View: true},
		}},
		{ID: 2, RestaurantID: 1, Name: "Legacy", Permissions: []permission.FlatPermission{
			{ModuleID: 99, ModuleName: "Kitchen Display", View: true},
			{ModuleID: 3, ModuleName: registry.ModuleOrders, View: true},
		}},
		{ID: 3, RestaurantID: 2, Name: "Empty", Permissions: []permission.FlatPermission{
			{ModuleID: 1, ModuleName: registry.ModuleDashboard},
		}},
		{ID: 4, RestaurantID: 2, Name: "Doubled", Permissions: []permission.FlatPermission{
			{ModuleID: 1, ModuleName: registry.ModuleDashboard, View: true},
			{ModuleID: 1, ModuleName: registry.ModuleDashboard},
		}},
	}

	w := NewRoleIntegrityScanWorker(fakeRoleSource{roles: roles}, registry.Default(), newScanPool(t))
	findings, scanned, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, scanned)

	kinds := make(map[int64][]FindingKind)
	for _, f := range findings {
		kinds[f.RoleID] = append(kinds[f.RoleID], f.Kind)
	}
	assert.Empty(t, kinds[1])
	assert.ElementsMatch(t, []FindingKind{FindingUnknownModule, FindingModuleMismatch}, kinds[2])
	assert.Equal(t, []FindingKind{FindingNoGrants}, kinds[3])
	assert.Equal(t, []FindingKind{FindingDuplicateModule}, kinds[4])

	require.NoError(t, w.Work(context.Background(), &river.Job[RoleIntegrityScanArgs]{}))
}

func TestRoleIntegrityScan_Errors(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("db down")
	w := NewRoleIntegrityScanWorker(fakeRoleSource{err: loadErr}, registry.Default(), newScanPool(t))
	_, _, err := w.Scan(context.Background())
	assert.ErrorIs(t, err, loadErr)

	_, _, err = (&RoleIntegrityScanWorker{}).Scan(context.Background())
	assert.ErrorContains(t, err, "not initialized")
}
