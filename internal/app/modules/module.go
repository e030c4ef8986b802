// Package modules contains the dependency units wired by the composition root.
//
// Import Path: dinehub.io/backoffice/internal/app/modules
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/jobs"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging.
	Name() string

	// RegisterWorkers registers module workers into the shared River registry.
	RegisterWorkers(*river.Workers)

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

// ServerDepsContributor injects module-owned dependencies into the HTTP server deps.
type ServerDepsContributor interface {
	ContributeServerDeps(*handlers.ServerDeps)
}

// PeriodicJobProvider is implemented by modules that schedule recurring jobs.
type PeriodicJobProvider interface {
	PeriodicJobs() []*river.PeriodicJob
}

// RiverBinder is implemented by modules that enqueue jobs. The River client
// only exists after every module has registered its workers, so it is
// handed over in a second step.
type RiverBinder interface {
	BindRiver(jobs.Inserter)
}
