// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the signed-in principal's stored global role, name, Mongo
// ObjectID and a found flag. If no user is present or the user ID is
// malformed, it returns "", "", NilObjectID, false, so ok=true always means a
// valid ObjectID.
func UserCtx(r *http.Request) (role rbac.Role, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "", "", primitive.NilObjectID, false
	}
	return rbac.ParseRoleOrUser(user.Role), user.Name, userID, true
}

// View returns the organization-context snapshot for the request. The zero
// View (which denies everything) is returned for anonymous requests and for
// requests that have no session attached.
func View(r *http.Request) orgcontext.View {
	if _, _, _, ok := UserCtx(r); !ok {
		return orgcontext.View{}
	}
	s, ok := orgcontext.FromRequest(r)
	if !ok {
		return orgcontext.View{}
	}
	return s.View()
}

// CanAccessPage reports whether the current principal may open page name in
// the active organization.
func CanAccessPage(r *http.Request, name string) bool {
	return View(r).CanAccessPage(name)
}

// CanPerformAction reports whether the current principal may perform action
// name in the active organization.
func CanPerformAction(r *http.Request, name string) bool {
	return View(r).CanPerformAction(name)
}

// EffectiveRole returns the resolved role and whether one is available. With
// an active organization this is the per-organization role; without one it is
// the stored global role.
func EffectiveRole(r *http.Request) (rbac.Role, bool) {
	v := View(r)
	if !v.Resolved {
		return "", false
	}
	return v.Role, true
}

// ActiveOrgID returns the committed active organization, or NilObjectID.
func ActiveOrgID(r *http.Request) primitive.ObjectID {
	v := View(r)
	if !v.Resolved || v.ActiveOrgID == nil {
		return primitive.NilObjectID
	}
	return *v.ActiveOrgID
}
