// internal/app/features/announcements/routes.go
package announcements

import (
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches announcement routes to an organization-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.With(authz.RequirePage(rbac.PageAnnouncements)).Get("/", h.List)
		r.Group(func(r chi.Router) {
			r.Use(authz.RequireAction(rbac.ActionPostAnnouncements))
			r.Post("/", h.Create)
			r.Patch("/{id}", h.Toggle)
			r.Delete("/{id}", h.Delete)
		})
	})
}
