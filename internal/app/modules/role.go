package modules

import (
	"context"
	"time"

	"github.com/riverqueue/river"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/jobs"
	"dinehub.io/backoffice/internal/pkg/worker"
	"dinehub.io/backoffice/internal/repository"
	"dinehub.io/backoffice/internal/service"
)

const defaultIntegrityScanInterval = 24 * time.Hour

// RoleModule wires role persistence, the role service and the role jobs.
type RoleModule struct {
	infra    *Infrastructure
	repo     repository.RoleRepository
	enqueuer *jobs.Enqueuer
	service  *service.RoleService
}

// NewRoleModule builds the role module on top of infra.
func NewRoleModule(infra *Infrastructure) *RoleModule {
	repo := repository.NewPostgresRoleRepository(infra.Pool)
	return newRoleModule(infra, repo)
}

func newRoleModule(infra *Infrastructure, repo repository.RoleRepository) *RoleModule {
	enqueuer := jobs.NewEnqueuer(nil)

	var permCache service.PermissionCache
	if infra.Cache != nil {
		permCache = infra.Cache
	}

	return &RoleModule{
		infra:    infra,
		repo:     repo,
		enqueuer: enqueuer,
		service:  service.NewRoleService(repo, infra.Registry, permCache, enqueuer),
	}
}

func (m *RoleModule) Name() string { return "role" }

// Service exposes the role service to callers outside the HTTP server.
func (m *RoleModule) Service() *service.RoleService { return m.service }

func (m *RoleModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Roles = m.service
}

func (m *RoleModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewRoleAuditWorker(m.infra.AuditLogger))
	river.AddWorker(workers, jobs.NewRoleIntegrityScanWorker(m.repo, m.infra.Registry, m.generalPool()))
}

func (m *RoleModule) generalPool() *worker.Pool {
	if m.infra.Pools == nil {
		return nil
	}
	return m.infra.Pools.General
}

// PeriodicJobs schedules the role integrity scan. It also runs once on start.
func (m *RoleModule) PeriodicJobs() []*river.PeriodicJob {
	interval := defaultIntegrityScanInterval
	if m.infra.Config != nil && m.infra.Config.River.IntegrityScanInterval > 0 {
		interval = m.infra.Config.River.IntegrityScanInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.RoleIntegrityScanArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

func (m *RoleModule) BindRiver(client jobs.Inserter) {
	m.enqueuer.Bind(client)
}

func (m *RoleModule) Shutdown(context.Context) error { return nil }
