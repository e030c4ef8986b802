package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/pkg/logger"
)

// RoleAuditArgs records one change to a role.
type RoleAuditArgs struct {
	RoleID         int64             `json:"role_id"`
	RestaurantID   int64             `json:"restaurant_id"`
	RoleName       string            `json:"role_name"`
	Action         domain.RoleAction `json:"action"`
	Actor          string            `json:"actor"`
	GrantedModules int               `json:"granted_modules"`
}

// Kind returns the job kind identifier for role audit records.
func (RoleAuditArgs) Kind() string { return "role_audit" }

// InsertOpts returns default insert options for role audit jobs.
func (RoleAuditArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 5,
	}
}

// RoleAuditWriter persists role audit records.
type RoleAuditWriter interface {
	LogRoleChange(ctx context.Context, action domain.RoleAction, restaurantID, roleID int64, actor string, details map[string]interface{}) error
}

// RoleAuditWorker writes an audit_logs row per RoleAuditArgs.
type RoleAuditWorker struct {
	river.WorkerDefaults[RoleAuditArgs]
	audit RoleAuditWriter
}

// NewRoleAuditWorker creates a RoleAuditWorker.
func NewRoleAuditWorker(audit RoleAuditWriter) *RoleAuditWorker {
	return &RoleAuditWorker{audit: audit}
}

// Work writes the audit row. Errors are returned so River retries.
func (w *RoleAuditWorker) Work(ctx context.Context, job *river.Job[RoleAuditArgs]) error {
	if w == nil || w.audit == nil {
		return fmt.Errorf("role audit worker is not initialized")
	}
	args := job.Args
	if args.Action == "" {
		return river.JobCancel(fmt.Errorf("role audit job for role %d has no action", args.RoleID))
	}

	details := map[string]interface{}{
		"role_name":       args.RoleName,
		"granted_modules": args.GrantedModules,
	}
	if err := w.audit.LogRoleChange(ctx, args.Action, args.RestaurantID, args.RoleID, args.Actor, details); err != nil {
		return fmt.Errorf("audit %s role %d: %w", args.Action, args.RoleID, err)
	}

	logger.Debug("role audit recorded",
		zap.String("action", string(args.Action)),
		zap.Int64("restaurant_id", args.RestaurantID),
		zap.Int64("role_id", args.RoleID),
	)
	return nil
}
