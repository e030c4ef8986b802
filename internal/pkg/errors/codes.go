package errors

import (
	"errors"
	"net/http"

	"dinehub.io/backoffice/internal/permission"
)

// Error codes are stable identifiers consumed by the back-office UI.
// Messages are English defaults; the UI may translate by code.

// Role error codes.
const (
	CodeRoleNotFound      = "ROLE_NOT_FOUND"
	CodeRoleNameExists    = "ROLE_NAME_EXISTS"
	CodeRoleNoPermissions = "ROLE_NO_PERMISSIONS"
	CodeRoleSaveFailed    = "ROLE_SAVE_FAILED"
)

// Permission matrix error codes.
const (
	CodeModuleNotFound  = "MODULE_NOT_FOUND"
	CodeDuplicateModule = "DUPLICATE_MODULE"
	CodeModuleMismatch  = "MODULE_MISMATCH"
	CodeFlagInvalid     = "PERMISSION_FLAG_INVALID"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// Validation error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// FieldPermissions is the form field the permission matrix is bound to.
const FieldPermissions = "permissions"

// ErrRoleNotFound creates a role not found error.
func ErrRoleNotFound() *AppError {
	return NotFound(CodeRoleNotFound, "role not found")
}

// ErrRoleNameExists creates a conflict error for a duplicate role name.
func ErrRoleNameExists(name string) *AppError {
	return Conflict(CodeRoleNameExists, "a role with this name already exists").
		WithParams(map[string]interface{}{"name": name})
}

// FromPermissionError maps permission engine errors to AppErrors.
// ErrNoPermissionsGranted becomes a single field-level error on "permissions";
// structural errors (unknown/duplicate/mismatched modules) become 422 so the
// client reloads instead of retrying. Returns nil for unrelated errors.
func FromPermissionError(err error) *AppError {
	var (
		notFound *permission.ModuleNotFoundError
		dup      *permission.DuplicateModuleError
		mismatch *permission.ModuleMismatchError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, permission.ErrNoPermissionsGranted):
		return Wrap(err, CodeRoleNoPermissions, "At least one permission must be selected", http.StatusBadRequest).
			WithFieldErrors([]FieldError{{
				Field:   FieldPermissions,
				Code:    CodeRoleNoPermissions,
				Message: "At least one permission must be selected",
			}})
	case errors.Is(err, permission.ErrUnknownFlag):
		return Wrap(err, CodeFlagInvalid, "unknown permission flag", http.StatusBadRequest)
	case errors.As(err, &notFound):
		return Wrap(err, CodeModuleNotFound, "permission module not found", http.StatusUnprocessableEntity).
			WithParams(map[string]interface{}{"module": notFound.Module})
	case errors.As(err, &dup):
		return Wrap(err, CodeDuplicateModule, "permission module listed more than once", http.StatusUnprocessableEntity).
			WithParams(map[string]interface{}{"module": dup.Module})
	case errors.As(err, &mismatch):
		return Wrap(err, CodeModuleMismatch, "permission module id does not match registry", http.StatusUnprocessableEntity).
			WithParams(map[string]interface{}{"module": mismatch.Module})
	}
	return nil
}
