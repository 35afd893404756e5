// internal/app/system/authz/middleware.go
package authz

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/go-chi/chi/v5"
)

// RequirePage lets the request through only when page name is allowed.
func RequirePage(name string) func(http.Handler) http.Handler {
	return guard("page", name, func(r *http.Request) bool { return CanAccessPage(r, name) })
}

// RequireAction lets the request through only when action name is allowed.
func RequireAction(name string) func(http.Handler) http.Handler {
	return guard("action", name, func(r *http.Request) bool { return CanPerformAction(r, name) })
}

// RequireAnyRole lets the request through only when the effective role is one of roles.
func RequireAnyRole(roles ...rbac.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	label := strings.Join(names, "|")
	return guard("role", label, func(r *http.Request) bool { return HasAnyRole(r, roles...) })
}

func guard(kind, name string, allowed func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, _, _, ok := UserCtx(r); !ok {
				auth.Unauthorized(w, r)
				return
			}
			if !allowed(r) {
				metrics.ObserveDenial(kind, name)
				Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActiveOrg admits organization-scoped routes only when the URL
// parameter param names the caller's committed active organization. Acting on
// another organization requires switching to it first, so every later check
// reads the role resolved for that organization.
func RequireActiveOrg(param string) func(http.Handler) http.Handler {
	return guard("org", param, func(r *http.Request) bool {
		active := ActiveOrgID(r)
		return !active.IsZero() && chi.URLParam(r, param) == active.Hex()
	})
}

// Forbidden writes the silent-deny response.
func Forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}
