// Package app is the composition root. Bootstrap only wires modules together.
//
// Import Path: dinehub.io/backoffice/internal/app
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/app/modules"
	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/infrastructure"
	"dinehub.io/backoffice/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Modules []modules.Module

	infra *modules.Infrastructure
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	allModules := []modules.Module{
		modules.NewRoleModule(infra),
	}

	workers := river.NewWorkers()
	var periodic []*river.PeriodicJob
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
		if p, ok := mod.(modules.PeriodicJobProvider); ok {
			periodic = append(periodic, p.PeriodicJobs()...)
		}
	}
	if err := infra.InitRiver(workers, periodic); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}
	for _, mod := range allModules {
		if b, ok := mod.(modules.RiverBinder); ok {
			b.BindRiver(infra.RiverClient)
		}
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, modules.NewJWTConfig(cfg.Security)),
		DB:      infra.DB,
		Pools:   infra.Pools,
		Modules: allModules,
		infra:   infra,
	}, nil
}
