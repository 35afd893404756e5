// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes returns the audit log router, mounted at /api/admin/audit.
// Access follows the admin page permission of the caller's effective role.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(authz.RequirePage(rbac.PageAdmin))
	r.Get("/", h.ServeList)
	return r
}
