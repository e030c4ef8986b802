package permission

import (
	"cmp"
	"fmt"
	"slices"
)

type entry struct {
	name string
	set  PermissionSet
}

// Matrix maps module name to PermissionSet. The zero value is an empty matrix.
//
// Entries are kept ordered by module id (then name) so Flatten and Equal are
// deterministic. index is built once per construction and never written
// afterwards, which lets derived matrices share it.
type Matrix struct {
	entries []entry
	index   map[string]int
}

// newMatrix takes ownership of entries.
func newMatrix(entries []entry) Matrix {
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.set.ModuleID, b.set.ModuleID); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.name] = i
	}
	return Matrix{entries: entries, index: index}
}

// builder collects entries while enforcing name and id uniqueness.
type builder struct {
	entries []entry
	names   map[string]struct{}
	ids     map[int]string
}

func newBuilder(n int) *builder {
	return &builder{
		entries: make([]entry, 0, n),
		names:   make(map[string]struct{}, n),
		ids:     make(map[int]string, n),
	}
}

func (b *builder) add(name string, set PermissionSet) error {
	if name == "" {
		return &ModuleNotFoundError{Module: name}
	}
	if _, dup := b.names[name]; dup {
		return &DuplicateModuleError{Module: name, ModuleID: set.ModuleID}
	}
	if set.ModuleID != 0 {
		if other, dup := b.ids[set.ModuleID]; dup {
			return &DuplicateModuleError{Module: name, ModuleID: set.ModuleID, Other: other}
		}
		b.ids[set.ModuleID] = name
	}
	b.names[name] = struct{}{}
	b.entries = append(b.entries, entry{name: name, set: set.withAll()})
	return nil
}

func (b *builder) matrix() Matrix {
	return newMatrix(b.entries)
}

// Initialize returns a matrix with one all-false entry per registry item.
func Initialize(registry []ModuleEntry) (Matrix, error) {
	b := newBuilder(len(registry))
	for _, mod := range registry {
		if err := b.add(mod.Name, PermissionSet{ModuleID: mod.ID}); err != nil {
			return Matrix{}, err
		}
	}
	return b.matrix(), nil
}

// Set changes one flag of one module and returns the resulting matrix.
//
// FlagAll writes all four CRUD flags. Granting create, edit or delete also
// grants view. Revoking view does not revoke anything else. All is
// recomputed for the touched module; every other module is left as is.
func (m Matrix) Set(module string, flag Flag, value bool) (Matrix, error) {
	i, ok := m.index[module]
	if !ok {
		return Matrix{}, &ModuleNotFoundError{Module: module}
	}
	if !flag.Valid() {
		return Matrix{}, fmt.Errorf("%w: %q", ErrUnknownFlag, flag)
	}

	set := m.entries[i].set
	switch flag {
	case FlagAll:
		set.View, set.Create, set.Edit, set.Delete = value, value, value, value
	case FlagView:
		set.View = value
	case FlagCreate:
		set.Create = value
	case FlagEdit:
		set.Edit = value
	case FlagDelete:
		set.Delete = value
	}
	if value && flag.impliesView() {
		set.View = true
	}

	entries := slices.Clone(m.entries)
	entries[i].set = set.withAll()
	return Matrix{entries: entries, index: m.index}, nil
}

// Get returns the set for a module.
func (m Matrix) Get(module string) (PermissionSet, bool) {
	i, ok := m.index[module]
	if !ok {
		return PermissionSet{}, false
	}
	return m.entries[i].set, true
}

// Len returns the number of modules.
func (m Matrix) Len() int { return len(m.entries) }

// Names returns module names ordered by module id.
func (m Matrix) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

// Modules returns the id and name of every module, ordered by module id.
func (m Matrix) Modules() []ModuleEntry {
	mods := make([]ModuleEntry, len(m.entries))
	for i, e := range m.entries {
		mods[i] = ModuleEntry{ID: e.set.ModuleID, Name: e.name}
	}
	return mods
}

// Each calls fn for every module in module id order.
func (m Matrix) Each(fn func(name string, set PermissionSet)) {
	for _, e := range m.entries {
		fn(e.name, e.set)
	}
}

// Equal reports whether both matrices hold the same modules with the same flags.
func (m Matrix) Equal(other Matrix) bool {
	return slices.Equal(m.entries, other.entries)
}

// Allows reports whether the module grants flag. Unknown modules grant nothing.
func (m Matrix) Allows(module string, flag Flag) bool {
	set, ok := m.Get(module)
	if !ok {
		return false
	}
	return set.Has(flag)
}

// Granted returns how many modules grant at least one CRUD flag.
func (m Matrix) Granted() int {
	n := 0
	for _, e := range m.entries {
		if e.set.Granted() {
			n++
		}
	}
	return n
}

// Validate fails with ErrNoPermissionsGranted when no module grants any of
// view, create, edit or delete.
func Validate(m Matrix) error {
	if m.Granted() == 0 {
		return ErrNoPermissionsGranted
	}
	return nil
}

// Union merges matrices by OR-ing their grants, module by module. It is used
// to compute the effective permissions of a user holding several roles.
// The first non-zero module id seen for a name wins.
func Union(ms ...Matrix) Matrix {
	merged := make(map[string]PermissionSet)
	var order []string
	for _, m := range ms {
		for _, e := range m.entries {
			cur, seen := merged[e.name]
			if !seen {
				order = append(order, e.name)
			}
			if cur.ModuleID == 0 {
				cur.ModuleID = e.set.ModuleID
			}
			cur.View = cur.View || e.set.View
			cur.Create = cur.Create || e.set.Create
			cur.Edit = cur.Edit || e.set.Edit
			cur.Delete = cur.Delete || e.set.Delete
			merged[e.name] = cur
		}
	}
	entries := make([]entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, entry{name: name, set: merged[name].withAll()})
	}
	return newMatrix(entries)
}
