// Package audit implements the audit logging service.
//
// Audit logs are append-only compliance records. Hard-delete is NOT allowed.
//
// Import Path: dinehub.io/backoffice/internal/governance/audit
package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/pkg/logger"
)

// ResourceRole is the resource type recorded for role changes.
const ResourceRole = "role"

// Execer is the part of pgxpool.Pool (or pgx.Tx) the logger needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Logger writes audit records to the audit_logs table.
type Logger struct {
	db Execer
}

// NewLogger creates a new audit Logger.
func NewLogger(db Execer) *Logger {
	return &Logger{db: db}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]interface{}) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO audit_logs (id, action, resource_type, resource_id, actor, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		generateAuditID(), action, resourceType, resourceID, actor, details,
	)
	if err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// LogRoleChange records a create, update or delete of a role.
func (l *Logger) LogRoleChange(ctx context.Context, action domain.RoleAction, restaurantID, roleID int64, actor string, details map[string]interface{}) error {
	merged := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	merged["restaurant_id"] = restaurantID
	return l.LogAction(ctx, string(action), ResourceRole, strconv.FormatInt(roleID, 10), actor, merged)
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
