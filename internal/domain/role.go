// Package domain provides the role model of the back-office.
//
// A role belongs to one restaurant and carries its grants as flat
// permission rows, one per module. The nested matrix form lives in
// internal/permission and is rebuilt from these rows on read.
//
// Import Path: dinehub.io/backoffice/internal/domain
package domain

import (
	"time"

	"dinehub.io/backoffice/internal/permission"
)

// RoleStatus is the lifecycle state of a role.
type RoleStatus string

const (
	RoleStatusActive   RoleStatus = "active"
	RoleStatusInactive RoleStatus = "inactive"
	RoleStatusPending  RoleStatus = "pending"
)

// Valid reports whether s is a known status.
func (s RoleStatus) Valid() bool {
	switch s {
	case RoleStatusActive, RoleStatusInactive, RoleStatusPending:
		return true
	}
	return false
}

// Role is a named permission set scoped to a restaurant.
type Role struct {
	ID           int64                       `json:"roleId"`
	RestaurantID int64                       `json:"restaurantId"`
	Name         string                      `json:"name"`
	Status       RoleStatus                  `json:"status"`
	Permissions  []permission.FlatPermission `json:"permissions"`
	CreatedBy    string                      `json:"createdBy,omitempty"`
	UpdatedBy    string                      `json:"updatedBy,omitempty"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

// GrantedModules counts the rows that grant at least one CRUD flag.
func (r *Role) GrantedModules() int {
	n := 0
	for _, p := range r.Permissions {
		if p.Granted() {
			n++
		}
	}
	return n
}

// RoleSummary is the list view of a role.
type RoleSummary struct {
	ID             int64      `json:"roleId"`
	RestaurantID   int64      `json:"restaurantId"`
	Name           string     `json:"name"`
	Status         RoleStatus `json:"status"`
	GrantedModules int        `json:"grantedModules"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// RoleList represents a paginated list of roles.
type RoleList struct {
	Items      []RoleSummary `json:"items"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
}

// RoleFilter selects roles of one restaurant for listing.
type RoleFilter struct {
	RestaurantID int64
	Search       string
	Offset       int
	Limit        int
}

// RoleAction names an auditable change to a role.
type RoleAction string

const (
	RoleActionCreated RoleAction = "role.created"
	RoleActionUpdated RoleAction = "role.updated"
	RoleActionDeleted RoleAction = "role.deleted"
)
