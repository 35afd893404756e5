// internal/app/features/password/routes.go
package password

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the password routes under /api/auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/forgot-password", h.HandleForgot)
	r.Post("/reset-password", h.HandleReset)
}
