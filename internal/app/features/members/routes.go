// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches member routes to an organization-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/members", func(r chi.Router) {
		r.With(authz.RequirePage(rbac.PageMembers)).Get("/", h.ServeList)
		r.With(authz.RequireAction(rbac.ActionChangeRoles)).Put("/{userID}/role", h.HandleSetRole)
		r.With(authz.RequireAction(rbac.ActionRemoveMembers)).Delete("/{userID}", h.HandleRemove)
	})
}
