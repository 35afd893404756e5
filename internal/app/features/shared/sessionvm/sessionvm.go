// internal/app/features/shared/sessionvm/sessionvm.go
package sessionvm

import (
	"sort"

	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
)

// UserVM is the principal as returned to the client.
type UserVM struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

// OrganizationVM is one membership in the switcher list.
type OrganizationVM struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  bool   `json:"owner"`
	Active bool   `json:"active"`
}

// ContextVM is the organization context and its resolved permissions.
type ContextVM struct {
	State                string           `json:"state"`
	ActiveOrganizationID string           `json:"active_organization_id,omitempty"`
	Role                 string           `json:"role,omitempty"`
	Source               string           `json:"source,omitempty"`
	Degraded             bool             `json:"degraded,omitempty"`
	Pages                []string         `json:"pages"`
	Actions              []string         `json:"actions"`
	Organizations        []OrganizationVM `json:"organizations"`
}

// MeVM is the body of GET /api/me and of a successful sign-in.
type MeVM struct {
	User    UserVM    `json:"user"`
	Context ContextVM `json:"context"`
}

// FromUser converts the stored record.
func FromUser(u models.User) UserVM {
	return UserVM{
		ID:            u.ID.Hex(),
		Name:          u.FullName,
		Email:         u.Email,
		Role:          string(rbac.ParseRoleOrUser(u.Role)),
		EmailVerified: u.EmailVerified,
	}
}

// FromSessionUser converts the request's principal.
func FromSessionUser(u *auth.SessionUser) UserVM {
	return UserVM{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(rbac.ParseRoleOrUser(u.Role)),
		EmailVerified: u.Verified,
	}
}

// Context describes s. A nil session is reported as uninitialized with no permissions.
func Context(s *orgcontext.Session) ContextVM {
	if s == nil {
		return ContextVM{State: orgcontext.StateUninitialized.String(), Pages: []string{}, Actions: []string{}, Organizations: []OrganizationVM{}}
	}
	v := s.View()
	vm := ContextVM{
		State:         v.State.String(),
		Degraded:      v.Degraded,
		Pages:         []string{},
		Actions:       []string{},
		Organizations: Organizations(s.Organizations(), v),
	}
	if v.ActiveOrgID != nil {
		vm.ActiveOrganizationID = v.ActiveOrgID.Hex()
	}
	if v.Resolved {
		vm.Role = string(v.Role)
		vm.Source = string(v.Source)
		vm.Pages = allowed(v.Permissions.Pages)
		vm.Actions = allowed(v.Permissions.Actions)
	}
	return vm
}

// Organizations lists orgs in their stored order, flagging the active one.
func Organizations(orgs []models.Organization, v orgcontext.View) []OrganizationVM {
	out := make([]OrganizationVM, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, OrganizationVM{
			ID:     o.ID.Hex(),
			Name:   o.Name,
			Owner:  o.OwnerID == v.UserID,
			Active: v.IsActive(o.ID),
		})
	}
	return out
}

func allowed(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for name, ok := range m {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
