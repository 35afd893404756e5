// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches invitation management to an organization-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invitations", func(r chi.Router) {
		r.With(authz.RequirePage(rbac.PageInvitations)).Get("/", h.ServeList)
		r.With(authz.RequireAction(rbac.ActionInviteMembers)).Post("/", h.HandleCreate)
		r.With(authz.RequireAction(rbac.ActionInviteMembers)).Delete("/{id}", h.HandleRevoke)
	})
}

// Routes returns the token-addressed router mounted at /api/invitations.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServePreview)
	r.With(sm.RequireSignedIn).Post("/{token}/accept", h.HandleAccept)
	return r
}
