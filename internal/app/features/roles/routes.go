// internal/app/features/roles/routes.go
package roles

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/roles router. Reading the table only needs a
// signed-in caller; editing it needs manage_role_permissions.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeTable)
	r.With(authz.RequireAction(rbac.ActionManageRolePermissions)).Put("/{role}", h.HandleUpdate)
	return r
}
