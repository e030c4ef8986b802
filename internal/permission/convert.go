package permission

// Flatten returns one row per module, without the All flag. Rows come out in
// module id order but callers must key by ModuleName, not by position.
func Flatten(m Matrix) []FlatPermission {
	flat := make([]FlatPermission, 0, len(m.entries))
	for _, e := range m.entries {
		flat = append(flat, FlatPermission{
			ModuleID:   e.set.ModuleID,
			ModuleName: e.name,
			View:       e.set.View,
			Create:     e.set.Create,
			Edit:       e.set.Edit,
			Delete:     e.set.Delete,
		})
	}
	return flat
}

// Unflatten builds a matrix from flat rows. All is always recomputed. Two rows
// with the same module name, or the same non-zero id under different names,
// fail with *DuplicateModuleError.
func Unflatten(flat []FlatPermission) (Matrix, error) {
	b := newBuilder(len(flat))
	for _, f := range flat {
		set := PermissionSet{
			ModuleID: f.ModuleID,
			View:     f.View,
			Create:   f.Create,
			Edit:     f.Edit,
			Delete:   f.Delete,
		}
		if err := b.add(f.ModuleName, set); err != nil {
			return Matrix{}, err
		}
	}
	return b.matrix(), nil
}

// ModuleLookup resolves a module name to its registry id.
type ModuleLookup interface {
	ModuleID(name string) (int, bool)
}

// ResolveModuleIDs returns a copy of flat with every module id checked
// against the registry. Rows without an id (0) get the registry id; rows
// whose id disagrees with the registry fail with *ModuleMismatchError; names
// the registry does not know fail with *ModuleNotFoundError.
func ResolveModuleIDs(flat []FlatPermission, lookup ModuleLookup) ([]FlatPermission, error) {
	out := make([]FlatPermission, len(flat))
	for i, f := range flat {
		id, ok := lookup.ModuleID(f.ModuleName)
		if !ok {
			return nil, &ModuleNotFoundError{Module: f.ModuleName}
		}
		switch {
		case f.ModuleID == 0:
			f.ModuleID = id
		case f.ModuleID != id:
			return nil, &ModuleMismatchError{Module: f.ModuleName, Got: f.ModuleID, Want: id}
		}
		out[i] = f
	}
	return out, nil
}

// Reconcile aligns m with the registry: every registry module missing from
// m is added as an all-false entry and entries the registry no longer lists
// are dropped. m itself is not modified.
func Reconcile(m Matrix, registry []ModuleEntry) Matrix {
	registered := make(map[string]struct{}, len(registry))
	for _, mod := range registry {
		registered[mod.Name] = struct{}{}
	}

	entries := make([]entry, 0, len(registry))
	for _, e := range m.entries {
		if _, ok := registered[e.name]; ok {
			entries = append(entries, e)
		}
	}
	kept := len(entries)
	for _, mod := range registry {
		if _, ok := m.index[mod.Name]; !ok {
			entries = append(entries, entry{name: mod.Name, set: PermissionSet{ModuleID: mod.ID}})
		}
	}
	if kept == len(m.entries) && len(entries) == kept {
		return m
	}
	return newMatrix(entries)
}
