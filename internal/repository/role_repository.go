// Package repository persists roles and their flat permission rows in PostgreSQL.
//
// Import Path: dinehub.io/backoffice/internal/repository
package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dinehub.io/backoffice/internal/domain"
	"dinehub.io/backoffice/internal/permission"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Migrate creates the role and audit tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply role schema: %w", err)
	}
	return nil
}

// RoleRepository stores roles. Lookups are always scoped to a restaurant.
// Missing roles yield an error wrapping apperrors.ErrNotFound; a name already
// used in the restaurant yields one wrapping apperrors.ErrAlreadyExists.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	Get(ctx context.Context, restaurantID, id int64) (*domain.Role, error)
	GetByName(ctx context.Context, restaurantID int64, name string) (*domain.Role, error)
	GetMany(ctx context.Context, restaurantID int64, ids []int64) ([]*domain.Role, error)
	List(ctx context.Context, filter domain.RoleFilter) ([]domain.RoleSummary, int, error)
	ListAll(ctx context.Context) ([]*domain.Role, error)
	Delete(ctx context.Context, restaurantID, id int64) error
}

// PostgresRoleRepository implements RoleRepository on a pgx pool.
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoleRepository creates a repository on the shared pool.
func NewPostgresRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

const roleColumns = `id, restaurant_id, name, status, created_by, updated_by, created_at, updated_at`

// Create inserts the role and its rows, filling ID and timestamps.
func (r *PostgresRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO roles (restaurant_id, name, status, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING id, created_at, updated_at`,
			role.RestaurantID, role.Name, string(role.Status), role.CreatedBy,
		).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return err
		}
		role.UpdatedBy = role.CreatedBy
		return insertPermissions(ctx, tx, role.ID, role.Permissions)
	})
	if err != nil {
		return wrapWriteErr(err, role)
	}
	return nil
}

// Update replaces name, status and every permission row of an existing role.
func (r *PostgresRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE roles SET name = $3, status = $4, updated_by = $5, updated_at = now()
			WHERE restaurant_id = $1 AND id = $2
			RETURNING created_by, created_at, updated_at`,
			role.RestaurantID, role.ID, role.Name, string(role.Status), role.UpdatedBy,
		).Scan(&role.CreatedBy, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return err
		}
		return insertPermissions(ctx, tx, role.ID, role.Permissions)
	})
	if err != nil {
		return wrapWriteErr(err, role)
	}
	return nil
}

func insertPermissions(ctx context.Context, tx pgx.Tx, roleID int64, rows []permission.FlatPermission) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"role_permissions"},
		[]string{"role_id", "module_id", "module_name", "can_view", "can_create", "can_edit", "can_delete"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			p := rows[i]
			return []any{roleID, p.ModuleID, p.ModuleName, p.View, p.Create, p.Edit, p.Delete}, nil
		}),
	)
	return err
}

func wrapWriteErr(err error, role *domain.Role) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("role %d: %w", role.ID, apperrors.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return fmt.Errorf("role %q: %w", role.Name, apperrors.ErrAlreadyExists)
	}
	return fmt.Errorf("save role %q: %w", role.Name, err)
}

// Get returns one role with its permission rows.
func (r *PostgresRoleRepository) Get(ctx context.Context, restaurantID, id int64) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE restaurant_id = $1 AND id = $2`,
		restaurantID, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("role %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get role %d: %w", id, err)
	}
	if err := r.attachPermissions(ctx, []*domain.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

// GetByName looks a role up by case-insensitive name.
func (r *PostgresRoleRepository) GetByName(ctx context.Context, restaurantID int64, name string) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE restaurant_id = $1 AND lower(name) = lower($2)`,
		restaurantID, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get role %q: %w", name, err)
	}
	if err := r.attachPermissions(ctx, []*domain.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

// GetMany returns the roles among ids that exist in the restaurant. Unknown
// ids are skipped.
func (r *PostgresRoleRepository) GetMany(ctx context.Context, restaurantID int64, ids []int64) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE restaurant_id = $1 AND id = ANY($2) ORDER BY id`,
		restaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Role, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListAll returns every role of every restaurant.
func (r *PostgresRoleRepository) ListAll(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY restaurant_id, id`)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Role, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// List returns one page of role summaries and the total match count.
func (r *PostgresRoleRepository) List(ctx context.Context, filter domain.RoleFilter) ([]domain.RoleSummary, int, error) {
	search := strings.TrimSpace(filter.Search)
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.restaurant_id, r.name, r.status, r.updated_at,
			(SELECT count(*) FROM role_permissions p
			 WHERE p.role_id = r.id AND (p.can_view OR p.can_create OR p.can_edit OR p.can_delete)),
			count(*) OVER ()
		FROM roles r
		WHERE r.restaurant_id = $1 AND ($2 = '' OR r.name ILIKE '%' || $2 || '%')
		ORDER BY r.name, r.id
		OFFSET $3 LIMIT $4`,
		filter.RestaurantID, search, filter.Offset, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var (
		items []domain.RoleSummary
		total int
	)
	for rows.Next() {
		var (
			s       domain.RoleSummary
			status  string
			granted int64
			count   int64
		)
		if err := rows.Scan(&s.ID, &s.RestaurantID, &s.Name, &status, &s.UpdatedAt, &granted, &count); err != nil {
			return nil, 0, fmt.Errorf("scan role summary: %w", err)
		}
		s.Status = domain.RoleStatus(status)
		s.GrantedModules = int(granted)
		total = int(count)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	if len(items) == 0 && filter.Offset > 0 {
		// Past the last page the window count is unavailable.
		if err := r.pool.QueryRow(ctx, `
			SELECT count(*) FROM roles
			WHERE restaurant_id = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%')`,
			filter.RestaurantID, search).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count roles: %w", err)
		}
	}
	return items, total, nil
}

// Delete removes a role. Its permission rows go with it.
func (r *PostgresRoleRepository) Delete(ctx context.Context, restaurantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE restaurant_id = $1 AND id = $2`, restaurantID, id)
	if err != nil {
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var (
		role   domain.Role
		status string
	)
	if err := row.Scan(&role.ID, &role.RestaurantID, &role.Name, &status,
		&role.CreatedBy, &role.UpdatedBy, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	role.Status = domain.RoleStatus(status)
	return &role, nil
}

func (r *PostgresRoleRepository) attachPermissions(ctx context.Context, roles []*domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Role, len(roles))
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
		ids = append(ids, role.ID)
		role.Permissions = []permission.FlatPermission{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT role_id, module_id, module_name, can_view, can_create, can_edit, can_delete
		FROM role_permissions WHERE role_id = ANY($1)
		ORDER BY role_id, module_id, module_name`, ids)
	if err != nil {
		return fmt.Errorf("query role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			roleID int64
			p      permission.FlatPermission
		)
		if err := rows.Scan(&roleID, &p.ModuleID, &p.ModuleName, &p.View, &p.Create, &p.Edit, &p.Delete); err != nil {
			return fmt.Errorf("scan role permission: %w", err)
		}
		if role, ok := byID[roleID]; ok {
			role.Permissions = append(role.Permissions, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query role permissions: %w", err)
	}
	return nil
}
