package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"dinehub.io/backoffice/internal/domain"
	apperrors "dinehub.io/backoffice/internal/pkg/errors"
	"dinehub.io/backoffice/internal/repository"
)

var _ repository.RoleRepository = (*MemoryRoleRepository)(nil)

// MemoryRoleRepository is an in-memory RoleRepository with the same
// scoping and uniqueness rules as the PostgreSQL one.
type MemoryRoleRepository struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]*domain.Role
}

// NewMemoryRoleRepository creates an empty repository.
func NewMemoryRoleRepository() *MemoryRoleRepository {
	return &MemoryRoleRepository{roles: make(map[int64]*domain.Role)}
}

func cloneRole(r *domain.Role) *domain.Role {
	c := *r
	c.Permissions = slices.Clone(r.Permissions)
	return &c
}

func (m *MemoryRoleRepository) nameTaken(r *domain.Role) bool {
	for _, other := range m.roles {
		if other.ID != r.ID && other.RestaurantID == r.RestaurantID && strings.EqualFold(other.Name, r.Name) {
			return true
		}
	}
	return false
}

// Create stores a new role and assigns its id.
func (m *MemoryRoleRepository) Create(_ context.Context, r *domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(r) {
		return fmt.Errorf("role %q: %w", r.Name, apperrors.ErrAlreadyExists)
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.roles[r.ID] = cloneRole(r)
	return nil
}

// Update replaces a role within its restaurant.
func (m *MemoryRoleRepository) Update(_ context.Context, r *domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.roles[r.ID]
	if !ok || cur.RestaurantID != r.RestaurantID {
		return fmt.Errorf("role %d: %w", r.ID, apperrors.ErrNotFound)
	}
	if m.nameTaken(r) {
		return fmt.Errorf("role %q: %w", r.Name, apperrors.ErrAlreadyExists)
	}
	r.CreatedBy = cur.CreatedBy
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	m.roles[r.ID] = cloneRole(r)
	return nil
}

// Get returns one role of a restaurant.
func (m *MemoryRoleRepository) Get(_ context.Context, restaurantID, id int64) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok || r.RestaurantID != restaurantID {
		return nil, fmt.Errorf("role %d: %w", id, apperrors.ErrNotFound)
	}
	return cloneRole(r), nil
}

// GetByName looks a role up by case-insensitive name.
func (m *MemoryRoleRepository) GetByName(_ context.Context, restaurantID int64, name string) (*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.RestaurantID == restaurantID && strings.EqualFold(r.Name, name) {
			return cloneRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, apperrors.ErrNotFound)
}

// GetMany returns the roles of ids that exist in the restaurant.
func (m *MemoryRoleRepository) GetMany(_ context.Context, restaurantID int64, ids []int64) ([]*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Role
	for _, id := range ids {
		if r, ok := m.roles[id]; ok && r.RestaurantID == restaurantID {
			out = append(out, cloneRole(r))
		}
	}
	return out, nil
}

// List returns one page of summaries ordered by name.
func (m *MemoryRoleRepository) List(_ context.Context, f domain.RoleFilter) ([]domain.RoleSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	var all []domain.RoleSummary
	for _, r := range m.roles {
		if r.RestaurantID != f.RestaurantID || !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		all = append(all, domain.RoleSummary{
			ID:             r.ID,
			RestaurantID:   r.RestaurantID,
			Name:           r.Name,
			Status:         r.Status,
			GrantedModules: r.GrantedModules(),
			UpdatedAt:      r.UpdatedAt,
		})
	}
	slices.SortFunc(all, func(a, b domain.RoleSummary) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return all[f.Offset:end], total, nil
}

// ListAll returns every stored role.
func (m *MemoryRoleRepository) ListAll(context.Context) ([]*domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, cloneRole(r))
	}
	slices.SortFunc(out, func(a, b *domain.Role) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Delete removes a role of a restaurant.
func (m *MemoryRoleRepository) Delete(_ context.Context, restaurantID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok || r.RestaurantID != restaurantID {
		return fmt.Errorf("role %d: %w", id, apperrors.ErrNotFound)
	}
	delete(m.roles, id)
	return nil
}

// Len returns the number of stored roles.
func (m *MemoryRoleRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.roles)
}
