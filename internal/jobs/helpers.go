// Package jobs defines River Queue job types for async processing.
//
// Jobs carry ids and small scalar payloads only; workers load what they need.
//
// Import Path: dinehub.io/backoffice/internal/jobs
package jobs

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/pkg/logger"
)

// Inserter is the part of river.Client used to enqueue jobs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Enqueuer submits role jobs to River. A nil *Enqueuer drops jobs, which
// keeps the service usable in tests and tools that run without a queue.
type Enqueuer struct {
	client Inserter
}

// NewEnqueuer wraps a River client.
func NewEnqueuer(client Inserter) *Enqueuer {
	return &Enqueuer{client: client}
}

// Bind attaches the River client when it is created after the Enqueuer.
// Call it before serving requests.
func (e *Enqueuer) Bind(client Inserter) {
	if e == nil {
		return
	}
	e.client = client
}

// EnqueueRoleAudit enqueues an audit record for a role change. Failures are
// logged and not returned: the role change itself already committed.
func (e *Enqueuer) EnqueueRoleAudit(ctx context.Context, args RoleAuditArgs) {
	if e == nil || e.client == nil {
		return
	}
	if _, err := e.client.Insert(ctx, args, nil); err != nil {
		logger.Warn("failed to enqueue role audit job",
			zap.String("action", string(args.Action)),
			zap.Int64("restaurant_id", args.RestaurantID),
			zap.Int64("role_id", args.RoleID),
			zap.Error(err),
		)
	}
}
