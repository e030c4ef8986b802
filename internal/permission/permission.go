// Package permission implements the role permission matrix: a per-module
// CRUD grant table (view/create/edit/delete plus the derived "all" flag).
//
// A Matrix is an immutable value. Every mutation returns a new Matrix and
// leaves the receiver untouched, so a caller can keep the previous version
// around for cancel/undo without copying anything itself.
//
// Two representations exist:
//   - the nested form (Matrix), keyed by module name, used while editing;
//   - the flat form ([]FlatPermission), one row per module, used on the wire
//     and in storage. The flat form never carries "all".
//
// Import Path: dinehub.io/backoffice/internal/permission
package permission

import (
	"fmt"
	"strings"
)

// Flag names one column of the matrix.
type Flag string

const (
	FlagAll    Flag = "all"
	FlagView   Flag = "view"
	FlagCreate Flag = "create"
	FlagEdit   Flag = "edit"
	FlagDelete Flag = "delete"
)

// Flags lists every flag in display order.
var Flags = []Flag{FlagAll, FlagView, FlagCreate, FlagEdit, FlagDelete}

// Valid reports whether f is one of the known flags.
func (f Flag) Valid() bool {
	switch f {
	case FlagAll, FlagView, FlagCreate, FlagEdit, FlagDelete:
		return true
	}
	return false
}

// impliesView reports whether granting f also requires view.
func (f Flag) impliesView() bool {
	return f == FlagCreate || f == FlagEdit || f == FlagDelete
}

// ParseFlag parses a flag name, case-insensitively.
func ParseFlag(s string) (Flag, error) {
	f := Flag(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFlag, s)
	}
	return f, nil
}

// ModuleEntry is one item of the module registry.
type ModuleEntry struct {
	ID   int    `json:"moduleId" yaml:"moduleId"`
	Name string `json:"moduleName" yaml:"moduleName"`
}

// PermissionSet is the grant bundle of a single module.
// All is derived and only ever written by this package.
type PermissionSet struct {
	ModuleID int  `json:"moduleId"`
	All      bool `json:"all"`
	View     bool `json:"view"`
	Create   bool `json:"create"`
	Edit     bool `json:"edit"`
	Delete   bool `json:"delete"`
}

// Has reports the value of a single flag.
func (s PermissionSet) Has(f Flag) bool {
	switch f {
	case FlagAll:
		return s.All
	case FlagView:
		return s.View
	case FlagCreate:
		return s.Create
	case FlagEdit:
		return s.Edit
	case FlagDelete:
		return s.Delete
	}
	return false
}

// Granted reports whether any of the four CRUD flags is set.
func (s PermissionSet) Granted() bool {
	return s.View || s.Create || s.Edit || s.Delete
}

func (s PermissionSet) withAll() PermissionSet {
	s.All = s.View && s.Create && s.Edit && s.Delete
	return s
}

// FlatPermission is the wire/storage row for one module.
type FlatPermission struct {
	ModuleID   int    `json:"moduleId"`
	ModuleName string `json:"moduleName"`
	View       bool   `json:"view"`
	Create     bool   `json:"create"`
	Edit       bool   `json:"edit"`
	Delete     bool   `json:"delete"`
}

// Granted reports whether the row grants anything.
func (f FlatPermission) Granted() bool {
	return f.View || f.Create || f.Edit || f.Delete
}
