package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/permission"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/pkg/worker"
	"dinehub.io/backoffice/internal/registry"
)

// DefaultIntegrityScanInterval is how often the periodic scan runs when the
// configured interval is not positive.
const DefaultIntegrityScanInterval = 24 * time.Hour

// RoleIntegrityScanArgs is a periodic maintenance job that checks stored
// roles against the module registry.
type RoleIntegrityScanArgs struct{}

// Kind returns the job kind identifier for the role integrity scan.
func (RoleIntegrityScanArgs) Kind() string { return "role_integrity_scan" }

// InsertOpts ensures at most one scan is enqueued per hour.
func (RoleIntegrityScanArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// FindingKind classifies an integrity problem.
type FindingKind string

const (
	// FindingUnknownModule: a row names a module the registry does not list.
	FindingUnknownModule FindingKind = "unknown_module"
	// FindingModuleMismatch: a row's module id disagrees with the registry.
	FindingModuleMismatch FindingKind = "module_mismatch"
	// FindingDuplicateModule: two rows name the same module.
	FindingDuplicateModule FindingKind = "duplicate_module"
	// FindingNoGrants: the role grants nothing.
	FindingNoGrants FindingKind = "no_grants"
)

// Finding is one problem found on one role.
type Finding struct {
	RestaurantID int64
	RoleID       int64
	RoleName     string
	Kind         FindingKind
	Detail       string
}

// RoleSource lists every stored role.
type RoleSource interface {
	ListAll(ctx context.Context) ([]*domain.Role, error)
}

// RoleIntegrityScanWorker loads all roles and checks them concurrently on
// the worker pool. Findings are logged; the job does not modify roles.
type RoleIntegrityScanWorker struct {
	river.WorkerDefaults[RoleIntegrityScanArgs]
	roles    RoleSource
	registry *registry.Registry
	pool     *worker.Pool
}

// NewRoleIntegrityScanWorker creates the scan worker.
func NewRoleIntegrityScanWorker(roles RoleSource, reg *registry.Registry, pool *worker.Pool) *RoleIntegrityScanWorker {
	return &RoleIntegrityScanWorker{roles: roles, registry: reg, pool: pool}
}

// Work runs the scan.
func (w *RoleIntegrityScanWorker) Work(ctx context.Context, _ *river.Job[RoleIntegrityScanArgs]) error {
	started := time.Now()
	findings, scanned, err := w.Scan(ctx)
	if err != nil {
		return err
	}
	for _, f := range findings {
		logger.Warn("role integrity finding",
			zap.Int64("restaurant_id", f.RestaurantID),
			zap.Int64("role_id", f.RoleID),
			zap.String("role_name", f.RoleName),
			zap.String("kind", string(f.Kind)),
			zap.String("detail", f.Detail),
		)
	}
	logger.Info("role integrity scan completed",
		zap.Int("roles_scanned", scanned),
		zap.Int("findings", len(findings)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Scan checks every role and returns the findings and the number of roles scanned.
func (w *RoleIntegrityScanWorker) Scan(ctx context.Context) ([]Finding, int, error) {
	if w == nil || w.roles == nil || w.registry == nil || w.pool == nil {
		return nil, 0, fmt.Errorf("role integrity scan worker is not initialized")
	}
	roles, err := w.roles.ListAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load roles: %w", err)
	}

	perRole := make([][]Finding, len(roles))
	err = w.pool.Each(ctx, len(roles), func(_ context.Context, i int) error {
		perRole[i] = checkRole(roles[i], w.registry)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan roles: %w", err)
	}

	var findings []Finding
	for _, fs := range perRole {
		findings = append(findings, fs...)
	}
	return findings, len(roles), nil
}

func checkRole(role *domain.Role, reg *registry.Registry) []Finding {
	finding := func(kind FindingKind, detail string) Finding {
		return Finding{
			RestaurantID: role.RestaurantID,
			RoleID:       role.ID,
			RoleName:     role.Name,
			Kind:         kind,
			Detail:       detail,
		}
	}

	var findings []Finding
	for _, row := range role.Permissions {
		_, err := permission.ResolveModuleIDs([]permission.FlatPermission{row}, reg)
		var (
			notFound *permission.ModuleNotFoundError
			mismatch *permission.ModuleMismatchError
		)
		switch {
		case errors.As(err, &notFound):
			findings = append(findings, finding(FindingUnknownModule, notFound.Error()))
		case errors.As(err, &mismatch):
			findings = append(findings, finding(FindingModuleMismatch, mismatch.Error()))
		}
	}

	m, err := permission.Unflatten(role.Permissions)
	var dup *permission.DuplicateModuleError
	if errors.As(err, &dup) {
		findings = append(findings, finding(FindingDuplicateModule, dup.Error()))
		return findings
	}
	if err == nil && errors.Is(permission.Validate(m), permission.ErrNoPermissionsGranted) {
		findings = append(findings, finding(FindingNoGrants, "role grants no module"))
	}
	return findings
}
