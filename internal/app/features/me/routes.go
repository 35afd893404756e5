// internal/app/features/me/routes.go
package me

import (
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted at /api/me. Every route requires sign-in.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeMe)
	r.Get("/organizations", h.ServeOrganizations)
	r.Post("/organizations/refresh", h.HandleRefresh)
	r.Post("/active-organization", h.HandleSwitch)
	return r
}
