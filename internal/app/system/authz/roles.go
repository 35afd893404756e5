// internal/app/system/authz/roles.go
package authz

import (
	"net/http"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
)

// HasAnyRole reports whether the effective role is one of roles.
// Returns false if no user is present or the session has not resolved.
func HasAnyRole(r *http.Request, roles ...rbac.Role) bool {
	return View(r).HasAnyRole(roles...)
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role rbac.Role) bool {
	return HasAnyRole(r, role)
}
