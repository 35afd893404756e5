// internal/app/features/organizations/manage.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeOrganization handles GET /api/organizations/{orgID}.
func (h *Handler) ServeOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := authz.ActiveOrgID(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, orgID)
	if err == mongo.ErrNoDocuments {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "load organization", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, toVM(org))
}

// HandleRename handles PATCH /api/organizations/{orgID}.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	_, _, userID, _ := authz.UserCtx(r)
	orgID := authz.ActiveOrgID(r)

	var req nameRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Name = normalize.Name(req.Name)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Orgs.Rename(ctx, orgID, req.Name)
	switch {
	case errors.Is(err, organizationstore.ErrDuplicateOrganization):
		uierrors.WriteInvalid(w, map[string]string{"name": "An organization with this name already exists."})
		return
	case err == mongo.ErrNoDocuments:
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	case err != nil:
		h.ErrLog.Log500(w, r, "rename organization", err)
		return
	}

	h.Sessions.RefreshOrg(ctx, orgID)
	h.AuditLog.OrgEvent(ctx, r, audit.EventOrgRenamed, userID, orgID, primitive.NilObjectID, map[string]string{"name": req.Name})
	h.ServeOrganization(w, r)
}

// HandleDelete handles DELETE /api/organizations/{orgID}. Its role entries go,
// its active invitations are revoked, and every session that had the
// organization loaded falls back to its next membership.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, _, userID, _ := authz.UserCtx(r)
	orgID := authz.ActiveOrgID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Orgs.Delete(ctx, orgID)
	if err != nil {
		h.ErrLog.Log500(w, r, "delete organization", err)
		return
	}
	if n == 0 {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if _, err := h.OrgRoles.DeleteByOrg(ctx, orgID); err != nil {
		h.Log.Warn("delete organization: role entries", zap.String("org_id", orgID.Hex()), zap.Error(err))
	}
	if _, err := h.Invites.RevokeByOrg(ctx, orgID); err != nil {
		h.Log.Warn("delete organization: invitations", zap.String("org_id", orgID.Hex()), zap.Error(err))
	}

	h.Sessions.RefreshOrg(ctx, orgID)
	h.AuditLog.OrgEvent(ctx, r, audit.EventOrgDeleted, userID, orgID, primitive.NilObjectID, nil)
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
