// internal/app/features/register/routes.go
package register

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the registration route under /api/auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}
