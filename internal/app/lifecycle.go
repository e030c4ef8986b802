package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/pkg/logger"
)

// Start begins consuming audit and integrity-scan jobs. Without a River
// client the API still serves; role saves then write audit rows inline.
func (a *Application) Start(ctx context.Context) error {
	if a.DB == nil || a.DB.RiverClient == nil {
		logger.Warn("no job queue configured, background jobs disabled",
			zap.Strings("modules", a.moduleNames()),
		)
		return nil
	}
	if err := a.DB.RiverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	logger.Info("job queue started", zap.Strings("modules", a.moduleNames()))
	return nil
}

// Shutdown stops the job queue within ctx, then the modules, then the
// pools and database connections.
func (a *Application) Shutdown(ctx context.Context) {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(ctx); err != nil {
			logger.Error("job queue did not stop cleanly", zap.Error(err))
		} else {
			logger.Info("job queue stopped")
		}
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(ctx); err != nil {
			logger.Warn("module shutdown failed",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.infra != nil {
		a.infra.Close()
		return
	}
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *Application) moduleNames() []string {
	names := make([]string, 0, len(a.Modules))
	for _, mod := range a.Modules {
		if mod != nil {
			names = append(names, mod.Name())
		}
	}
	return names
}
