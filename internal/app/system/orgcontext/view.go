// internal/app/system/orgcontext/view.go
package orgcontext

import (
	"time"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// View is an immutable snapshot of a session, safe to read without locks.
// The zero View denies everything.
type View struct {
	UserID      primitive.ObjectID
	State       State
	ActiveOrgID *primitive.ObjectID
	Role        rbac.Role
	Permissions rbac.PermissionSet
	Source      resolver.Source
	// Resolved is false while loading or while a transition is in flight.
	Resolved bool
	Degraded bool
}

// View returns the current snapshot and marks the session as used.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	v := View{
		UserID:      s.userID,
		State:       s.state,
		ActiveOrgID: copyID(s.active),
		Resolved:    s.resolved,
	}
	if s.resolved {
		v.Role = s.res.Role
		v.Permissions = s.res.Permissions.Clone()
		v.Source = s.res.Source
		v.Degraded = s.res.Degraded
	}
	return v
}

// usable reports whether the snapshot carries a committed resolution.
func (v View) usable() bool {
	if !v.Resolved {
		return false
	}
	return v.State == StateHasActiveOrganization || v.State == StateNoOrganizations
}

// CanAccessPage reports whether the resolved set allows page name.
func (v View) CanAccessPage(name string) bool {
	return v.usable() && v.Permissions.CanAccessPage(name)
}

// CanPerformAction reports whether the resolved set allows action name.
func (v View) CanPerformAction(name string) bool {
	return v.usable() && v.Permissions.CanPerformAction(name)
}

// HasRole compares against the effective role.
func (v View) HasRole(role rbac.Role) bool {
	return v.usable() && v.Role == role
}

// HasAnyRole reports whether the effective role is one of roles.
func (v View) HasAnyRole(roles ...rbac.Role) bool {
	if !v.usable() {
		return false
	}
	for _, r := range roles {
		if v.Role == r {
			return true
		}
	}
	return false
}

// IsActive reports whether orgID is the committed active organization.
func (v View) IsActive(orgID primitive.ObjectID) bool {
	return v.usable() && v.ActiveOrgID != nil && *v.ActiveOrgID == orgID
}
