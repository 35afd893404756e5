// internal/app/features/organizations/create.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type nameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type createResponse struct {
	Organization orgVM               `json:"organization"`
	Context      sessionvm.ContextVM `json:"context"`
}

// HandleCreate handles POST /api/organizations. The caller becomes the owner.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		uierrors.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req nameRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Name = normalize.Name(req.Name)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.Create(ctx, req.Name, userID)
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		uierrors.WriteInvalid(w, map[string]string{"name": "An organization with this name already exists."})
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "create organization", err)
		return
	}
	// Owner precedence already yields account_owner; the entry keeps
	// org_roles a complete listing.
	if _, err := h.OrgRoles.Set(ctx, org.ID, userID, rbac.RoleAccountOwner, userID); err != nil {
		h.Log.Warn("create organization: owner role entry", zap.String("org_id", org.ID.Hex()), zap.Error(err))
	}

	h.Sessions.RefreshUser(ctx, userID)
	h.AuditLog.OrgEvent(ctx, r, audit.EventOrgCreated, userID, org.ID, primitive.NilObjectID, map[string]string{"name": org.Name})

	s, _ := orgcontext.FromRequest(r)
	uierrors.WriteJSON(w, http.StatusCreated, createResponse{Organization: toVM(org), Context: sessionvm.Context(s)})
}
