// Package main seeds the built-in back-office roles.
//
// Seeding is idempotent: a role whose name already exists in a restaurant
// is left untouched, including any permissions edited since.
//
//	seed --restaurant 1 --restaurant 2
//
// Import Path: dinehub.io/backoffice/cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/governance/audit"
	"dinehub.io/backoffice/internal/infrastructure"
	"dinehub.io/backoffice/internal/jobs"
	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/pkg/logger"
	"dinehub.io/backoffice/internal/registry"
	"dinehub.io/backoffice/internal/repository"
	"dinehub.io/backoffice/internal/service"
)

const seedActor = "system-seed"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	restaurantIDs, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return fmt.Errorf("load module registry: %w", err)
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	// Role tables are expected to be migrated before seeding.
	repo := repository.NewPostgresRoleRepository(db.Pool)
	s := newSeeder(repo, reg, directAudit{logger: audit.NewLogger(db.Pool)})

	logger.Info("Starting role seeding...", zap.Int64s("restaurants", restaurantIDs))
	res, err := s.seed(ctx, restaurantIDs)
	if err != nil {
		return err
	}
	logger.Info("Role seeding completed successfully",
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}

func parseFlags(args []string) ([]int64, error) {
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	restaurants := fs.Int64Slice("restaurant", nil, "restaurant id to seed, repeatable")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(*restaurants) == 0 {
		return nil, errors.New("at least one --restaurant is required")
	}
	for _, id := range *restaurants {
		if id <= 0 {
			return nil, fmt.Errorf("invalid restaurant id %d", id)
		}
	}
	return *restaurants, nil
}

// builtInRole is a role every restaurant starts with.
type builtInRole struct {
	Name string
	// AllModules grants every flag on every registered module.
	AllModules bool
	Grants     map[string][]permission.Flag
}

func builtInRoles() []builtInRole {
	view := []permission.Flag{permission.FlagView}
	full := []permission.Flag{permission.FlagAll}
	return []builtInRole{
		{Name: "Owner", AllModules: true},
		{
			Name: "Manager",
			Grants: map[string][]permission.Flag{
				registry.ModuleDashboard:  view,
				registry.ModuleUsers:      {permission.FlagView, permission.FlagCreate, permission.FlagEdit},
				registry.ModuleCustomers:  full,
				registry.ModuleCategories: full,
				registry.ModuleMenu:       full,
				registry.ModuleOrders:     full,
				registry.ModuleInventory:  full,
				registry.ModuleReports:    view,
				registry.ModuleCoupons:    full,
				registry.ModuleReviews:    {permission.FlagView, permission.FlagEdit},
				registry.ModuleSupport:    full,
				registry.ModuleTV:         full,
				registry.ModuleRoles:      view,
				registry.ModuleSettings:   view,
			},
		},
		{
			Name: "Cashier",
			Grants: map[string][]permission.Flag{
				registry.ModuleDashboard: view,
				registry.ModuleCustomers: {permission.FlagCreate},
				registry.ModuleMenu:      view,
				registry.ModuleOrders:    {permission.FlagCreate, permission.FlagEdit},
				registry.ModuleCoupons:   view,
			},
		},
		{
			Name: "Viewer",
			Grants: map[string][]permission.Flag{
				registry.ModuleDashboard: view,
				registry.ModuleMenu:      view,
				registry.ModuleOrders:    view,
				registry.ModuleInventory: view,
				registry.ModuleReports:   view,
			},
		},
	}
}

// buildMatrix applies the grants of role to an empty matrix of reg. Modules
// the registry does not know are skipped.
func buildMatrix(role builtInRole, reg *registry.Registry) (permission.Matrix, error) {
	m, err := permission.Initialize(reg.Entries())
	if err != nil {
		return permission.Matrix{}, err
	}
	if role.AllModules {
		for _, name := range m.Names() {
			if m, err = m.Set(name, permission.FlagAll, true); err != nil {
				return permission.Matrix{}, err
			}
		}
		return m, nil
	}
	for module, flags := range role.Grants {
		if !reg.Has(module) {
			logger.Warn("built-in role references unregistered module",
				zap.String("role", role.Name),
				zap.String("module", module),
			)
			continue
		}
		for _, flag := range flags {
			if m, err = m.Set(module, flag, true); err != nil {
				return permission.Matrix{}, err
			}
		}
	}
	return m, nil
}

type roleLookup interface {
	GetByName(ctx context.Context, restaurantID int64, name string) (*domain.Role, error)
}

type seeder struct {
	roles    roleLookup
	registry *registry.Registry
	service  *service.RoleService
}

func newSeeder(repo repository.RoleRepository, reg *registry.Registry, auditor service.AuditEnqueuer) *seeder {
	return &seeder{
		roles:    repo,
		registry: reg,
		service:  service.NewRoleService(repo, reg, nil, auditor),
	}
}

type seedResult struct {
	Created int
	Skipped int
}

func (s *seeder) seed(ctx context.Context, restaurantIDs []int64) (seedResult, error) {
	var res seedResult
	for _, restaurantID := range restaurantIDs {
		for _, role := range builtInRoles() {
			_, err := s.roles.GetByName(ctx, restaurantID, role.Name)
			if err == nil {
				logger.Info("Role already exists, skipping",
					zap.Int64("restaurant_id", restaurantID),
					zap.String("role", role.Name),
				)
				res.Skipped++
				continue
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return res, fmt.Errorf("look up role %s: %w", role.Name, err)
			}

			m, err := buildMatrix(role, s.registry)
			if err != nil {
				return res, fmt.Errorf("build role %s: %w", role.Name, err)
			}
			saved, err := s.service.Save(ctx, seedActor, service.SaveRoleInput{
				RestaurantID: restaurantID,
				Name:         role.Name,
				Status:       domain.RoleStatusActive,
				Permissions:  permission.Flatten(m),
			})
			if err != nil {
				return res, fmt.Errorf("create role %s: %w", role.Name, err)
			}
			logger.Info("Seeded built-in role",
				zap.Int64("restaurant_id", restaurantID),
				zap.Int64("role_id", saved.ID),
				zap.String("role", role.Name),
			)
			res.Created++
		}
	}
	return res, nil
}

// directAudit writes audit rows synchronously; the seed command runs
// without a job queue.
type directAudit struct {
	logger *audit.Logger
}

func (d directAudit) EnqueueRoleAudit(ctx context.Context, args jobs.RoleAuditArgs) {
	details := map[string]interface{}{
		"role_name":       args.RoleName,
		"granted_modules": args.GrantedModules,
	}
	if err := d.logger.LogRoleChange(ctx, args.Action, args.RestaurantID, args.RoleID, args.Actor, details); err != nil {
		logger.Warn("failed to audit seeded role",
			zap.Int64("role_id", args.RoleID),
			zap.Error(err),
		)
	}
}
