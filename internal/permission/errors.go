package permission

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPermissionsGranted is the user-facing validation failure for a
	// matrix where no module grants anything.
	ErrNoPermissionsGranted = errors.New("at least one permission must be selected")

	// ErrUnknownFlag is returned for a flag name outside Flags.
	ErrUnknownFlag = errors.New("unknown permission flag")
)

// ModuleNotFoundError means a module name is absent from the matrix or the
// registry it was checked against.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("permission module %q not found", e.Module)
}

// DuplicateModuleError means two entries claim the same module name, or the
// same module id under different names.
type DuplicateModuleError struct {
	Module   string
	ModuleID int
	// Other is set when the collision is on the id: the name that already holds it.
	Other string
}

func (e *DuplicateModuleError) Error() string {
	if e.Other != "" {
		return fmt.Sprintf("module id %d assigned to both %q and %q", e.ModuleID, e.Other, e.Module)
	}
	return fmt.Sprintf("duplicate permission module %q", e.Module)
}

// ModuleMismatchError means a row carries a module id that disagrees with the
// registry entry of the same name.
type ModuleMismatchError struct {
	Module string
	Got    int
	Want   int
}

func (e *ModuleMismatchError) Error() string {
	return fmt.Sprintf("module %q has id %d, registry says %d", e.Module, e.Got, e.Want)
}

// IsStructural reports whether err is one of the programmer/payload errors
// (as opposed to ErrNoPermissionsGranted, which a user can fix).
func IsStructural(err error) bool {
	var (
		notFound *ModuleNotFoundError
		dup      *DuplicateModuleError
		mismatch *ModuleMismatchError
	)
	return errors.As(err, &notFound) || errors.As(err, &dup) || errors.As(err, &mismatch)
}
