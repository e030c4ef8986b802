// Package registry holds the catalog of back-office modules that permissions
// are granted against.
//
// The catalog is static per deployment: it ships with a built-in default and
// can be replaced by a YAML file (registry.path in config).
//
// Import Path: dinehub.io/backoffice/internal/registry
package registry

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"dinehub.io/backoffice/internal/permission"
)

// Module names referenced by code (RBAC guards, seed data).
const (
	ModuleDashboard         = "Dashboard"
	ModuleRestaurants       = "Restaurant Management"
	ModuleUsers             = "User Management"
	ModuleCustomers         = "Customer Management"
	ModuleCategories        = "Category Management"
	ModuleMenu              = "Menu Management"
	ModuleOrders            = "Order Management"
	ModuleInventory         = "Inventory Management"
	ModuleReports           = "Report Management"
	ModuleCoupons           = "Coupon Management"
	ModuleReviews           = "Customer Review and Rating"
	ModuleSupport           = "Support Tickets"
	ModuleTV                = "TV Management"
	ModuleSettings          = "Setting"
	ModulePayments          = "Payment Gateway"
	ModuleLocations         = "Location Management"
	ModuleRestaurantProfile = "Restaurant Profile"
	ModuleRoles             = "Roles & Permission"
)

var defaultModules = []permission.ModuleEntry{
	{ID: 1, Name: ModuleDashboard},
	{ID: 2, Name: ModuleRestaurants},
	{ID: 3, Name: ModuleUsers},
	{ID: 4, Name: ModuleCustomers},
	{ID: 5, Name: ModuleCategories},
	{ID: 6, Name: ModuleMenu},
	{ID: 7, Name: ModuleOrders},
	{ID: 8, Name: ModuleInventory},
	{ID: 9, Name: ModuleReports},
	{ID: 10, Name: ModuleCoupons},
	{ID: 11, Name: ModuleReviews},
	{ID: 12, Name: ModuleSupport},
	{ID: 13, Name: ModuleTV},
	{ID: 14, Name: ModuleSettings},
	{ID: 15, Name: ModulePayments},
	{ID: 16, Name: ModuleLocations},
	{ID: 17, Name: ModuleRestaurantProfile},
	{ID: 18, Name: ModuleRoles},
}

// Registry is an immutable module catalog.
type Registry struct {
	entries []permission.ModuleEntry
	byName  map[string]int
	byID    map[int]string
}

// New validates entries and builds a registry. Names must be non-empty and
// unique, ids positive and unique.
func New(entries []permission.ModuleEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("module registry is empty")
	}
	r := &Registry{
		entries: slices.Clone(entries),
		byName:  make(map[string]int, len(entries)),
		byID:    make(map[int]string, len(entries)),
	}
	for _, e := range r.entries {
		name := strings.TrimSpace(e.Name)
		if name == "" || name != e.Name {
			return nil, fmt.Errorf("module %d: invalid name %q", e.ID, e.Name)
		}
		if e.ID <= 0 {
			return nil, fmt.Errorf("module %q: id must be positive, got %d", e.Name, e.ID)
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("module %q listed twice", e.Name)
		}
		if other, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("module id %d used by both %q and %q", e.ID, other, e.Name)
		}
		r.byName[e.Name] = e.ID
		r.byID[e.ID] = e.Name
	}
	slices.SortFunc(r.entries, func(a, b permission.ModuleEntry) int { return a.ID - b.ID })
	return r, nil
}

// Default returns the built-in back-office catalog.
func Default() *Registry {
	r, err := New(defaultModules)
	if err != nil {
		panic(fmt.Sprintf("default module registry: %v", err))
	}
	return r
}

type fileFormat struct {
	Modules []permission.ModuleEntry `yaml:"modules"`
}

// Load reads a registry from a YAML file of the form
//
//	modules:
//	  - moduleId: 1
//	    moduleName: Dashboard
//
// An empty path returns Default().
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse module registry: %w", err)
	}
	return New(f.Modules)
}

// Entries returns the modules ordered by id. The slice is a copy.
func (r *Registry) Entries() []permission.ModuleEntry {
	return slices.Clone(r.entries)
}

// Len returns the number of modules.
func (r *Registry) Len() int { return len(r.entries) }

// ModuleID implements permission.ModuleLookup.
func (r *Registry) ModuleID(name string) (int, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// ModuleName returns the name registered for id.
func (r *Registry) ModuleName(id int) (string, bool) {
	name, ok := r.byID[id]
	return name, ok
}

// Has reports whether the module name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}
