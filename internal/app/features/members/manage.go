// internal/app/features/members/manage.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// target loads the active organization and parses {userID}. On failure the
// response has been written and ok is false.
func (h *Handler) target(ctx context.Context, w http.ResponseWriter, r *http.Request) (org models.Organization, userID primitive.ObjectID, ok bool) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		uierrors.WriteInvalid(w, map[string]string{"user_id": "user_id must be a valid id."})
		return org, userID, false
	}
	org, err = h.Orgs.GetByID(ctx, authz.ActiveOrgID(r))
	if err == mongo.ErrNoDocuments {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return org, userID, false
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "load organization", err)
		return org, userID, false
	}
	if !org.HasMember(userID) && !org.HasSubAccount(userID) {
		uierrors.WriteError(w, http.StatusNotFound, "not_a_member", "That user is not a member of this organization.")
		return org, userID, false
	}
	return org, userID, true
}

// HandleSetRole handles PUT /api/organizations/{orgID}/members/{userID}/role.
// The caller may only grant, and only change, roles at or below their own.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	actorRole, _ := authz.EffectiveRole(r)

	var req roleRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}
	role, _ := rbac.ParseRole(req.Role)
	if !role.OrgAssignable() {
		uierrors.WriteInvalid(w, map[string]string{"role": "admin cannot be assigned within an organization."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, userID, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	if userID == org.OwnerID {
		uierrors.WriteError(w, http.StatusBadRequest, "owner_role_fixed", "The owner's role cannot be changed.")
		return
	}

	current := h.Resolver.Resolve(ctx, userID, &org.ID)
	if !rbac.CanGrant(actorRole, role) || !rbac.CanGrant(actorRole, current.Role) {
		h.AuditLog.AccessDenied(ctx, r, actorID, "grant", string(role))
		authz.Forbidden(w)
		return
	}

	if _, err := h.OrgRoles.Set(ctx, org.ID, userID, role, actorID); err != nil {
		h.ErrLog.Log500(w, r, "set org role", err)
		return
	}
	h.Sessions.InvalidateUser(ctx, userID)
	h.AuditLog.OrgEvent(ctx, r, audit.EventOrgRoleChanged, actorID, org.ID, userID, map[string]string{
		"from": string(current.Role),
		"to":   string(role),
	})

	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"user_id": userID.Hex(), "role": string(role)})
}

// HandleRemove handles DELETE /api/organizations/{orgID}/members/{userID}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, userID, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	err := h.Orgs.RemoveMember(ctx, org.ID, userID)
	if errors.Is(err, organizationstore.ErrOwnerRemoval) {
		uierrors.WriteError(w, http.StatusBadRequest, "owner_removal", "The owner cannot be removed from the organization.")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "remove member", err)
		return
	}
	if _, err := h.OrgRoles.Delete(ctx, org.ID, userID); err != nil {
		h.Log.Warn("remove member: role entry", zap.String("org_id", org.ID.Hex()), zap.Error(err))
	}

	h.Sessions.RefreshUser(ctx, userID)
	h.AuditLog.OrgEvent(ctx, r, audit.EventMemberRemoved, actorID, org.ID, userID, nil)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
