package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/cache"
	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/governance/audit"
	"dinehub.io/backoffice/internal/infrastructure"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/pkg/worker"
	"dinehub.io/backoffice/internal/registry"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Registry    *registry.Registry
	// Cache is nil when no Redis address is configured.
	Cache       *cache.PermissionCache
	AuditLogger *audit.Logger
}

// NewInfrastructure initializes the database, worker pools, module catalog
// and permission cache.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("load module registry: %w", err)
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Dev mode: create role tables and River queue tables.
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	permCache, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init permission cache: %w", err)
	}
	if permCache == nil {
		logger.Warn("Permission cache disabled, every check reads the database")
	}

	logger.Info("Module registry loaded",
		zap.Int("modules", len(reg.Entries())),
		zap.String("path", cfg.Registry.Path),
	)

	return &Infrastructure{
		Config:      cfg,
		DB:          db,
		Pools:       pools,
		Pool:        db.Pool,
		Registry:    reg,
		Cache:       permCache,
		AuditLogger: audit.NewLogger(db.Pool),
	}, nil
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.Cache != nil {
		if err := i.Cache.Close(); err != nil {
			logger.Warn("failed to close permission cache", zap.Error(err))
		}
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
