// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// Routes returns the /api/organizations subrouter. Routes under /{orgID}
// require that organization to be the caller's active one; scoped mounts
// (members, invitations, announcements) are attached there.
func Routes(h *Handler, sm *auth.SessionManager, scoped ...func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.With(authz.RequireAction(rbac.ActionCreateOrganization)).Post("/", h.HandleCreate)

	r.Route("/{orgID}", func(r chi.Router) {
		r.Use(authz.RequireActiveOrg("orgID"))
		r.With(authz.RequirePage(rbac.PageOrganizations)).Get("/", h.ServeOrganization)
		r.With(authz.RequireAction(rbac.ActionEditOrganization)).Patch("/", h.HandleRename)
		r.With(authz.RequireAction(rbac.ActionDeleteOrganization)).Delete("/", h.HandleDelete)
		for _, mount := range scoped {
			mount(r)
		}
	})
	return r
}
