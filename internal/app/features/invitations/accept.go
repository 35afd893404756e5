// internal/app/features/invitations/accept.go
package invitations

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/invites"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type previewResponse struct {
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Role             string    `json:"role"`
	Email            string    `json:"email,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type acceptResponse struct {
	OrganizationID string              `json:"organization_id"`
	Role           string              `json:"role"`
	Context        sessionvm.ContextVM `json:"context"`
}

// writeRejection maps a validator rejection onto a response.
func writeRejection(w http.ResponseWriter, err error) {
	reason, _ := invites.ReasonOf(err)
	switch reason {
	case invites.ReasonNotFound:
		uierrors.WriteError(w, http.StatusNotFound, string(reason), "This invitation does not exist.")
	case invites.ReasonUnavailable:
		uierrors.WriteError(w, http.StatusServiceUnavailable, string(reason), "Invitations cannot be checked right now. Try again shortly.")
	case invites.ReasonNotActive:
		uierrors.WriteError(w, http.StatusBadRequest, string(reason), "This invitation is no longer active.")
	case invites.ReasonExpired:
		uierrors.WriteError(w, http.StatusBadRequest, string(reason), "This invitation has expired.")
	case invites.ReasonExhausted:
		uierrors.WriteError(w, http.StatusBadRequest, string(reason), "This invitation has already been used.")
	default:
		uierrors.WriteError(w, http.StatusBadRequest, "invalid_invitation", "")
	}
}

// ServePreview handles GET /api/invitations/{token}. Anyone holding the token
// may see which organization and role it grants.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	token := normalize.Token(chi.URLParam(r, "token"))
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Validator.Validate(ctx, token, invites.Options{})
	if err != nil {
		writeRejection(w, err)
		return
	}
	resp := previewResponse{
		OrganizationID: inv.OrgID.Hex(),
		Role:           inv.Role,
		Email:          inv.Email,
		ExpiresAt:      inv.ExpiresAt,
	}
	if org, err := h.Orgs.GetByID(ctx, inv.OrgID); err == nil {
		resp.OrganizationName = org.Name
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

// HandleAccept handles POST /api/invitations/{token}/accept for the signed-in
// user. Membership checks run before the token is consumed, so a refused
// acceptance never uses up the invitation.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		uierrors.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	token := normalize.Token(chi.URLParam(r, "token"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Validator.Validate(ctx, token, invites.Options{})
	if err != nil {
		reason, _ := invites.ReasonOf(err)
		h.AuditLog.InvitationRejected(ctx, r, userID, inv.OrgID, string(reason))
		writeRejection(w, err)
		return
	}
	if !emailMatches(su, inv.EmailCI) {
		h.AuditLog.InvitationRejected(ctx, r, userID, inv.OrgID, "email_mismatch")
		uierrors.WriteError(w, http.StatusBadRequest, "email_mismatch", "This invitation was sent to a different email address.")
		return
	}
	org, err := h.Orgs.GetByID(ctx, inv.OrgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// The organization was deleted after the invitation was issued.
		h.AuditLog.InvitationRejected(ctx, r, userID, inv.OrgID, string(invites.ReasonNotFound))
		writeRejection(w, &invites.Rejection{Reason: invites.ReasonNotFound})
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "load invited organization", err)
		return
	}
	if org.HasMember(userID) {
		uierrors.WriteError(w, http.StatusBadRequest, "already_member", "You are already a member of this organization.")
		return
	}

	inv, err = h.Validator.Redeem(ctx, token, userID)
	if err != nil {
		reason, _ := invites.ReasonOf(err)
		h.AuditLog.InvitationRejected(ctx, r, userID, org.ID, string(reason))
		writeRejection(w, err)
		return
	}

	if err := h.Orgs.AddMember(ctx, org.ID, userID); err != nil {
		h.ErrLog.Log500(w, r, "add member", err)
		return
	}
	role := rbac.ParseRoleOrUser(inv.Role)
	if role != rbac.RoleUser {
		if _, err := h.OrgRoles.Set(ctx, org.ID, userID, role, inv.CreatedBy); err != nil {
			h.Log.Warn("invitation role entry", zap.String("org_id", org.ID.Hex()), zap.Error(err))
		}
	}

	h.Sessions.RefreshUser(ctx, userID)
	s, _ := orgcontext.FromRequest(r)
	if s != nil && s.Switch(ctx, org.ID) == nil {
		if err := h.SessionMgr.SetActiveOrgHint(w, r, org.ID.Hex()); err != nil {
			h.Log.Warn("save active organization hint", zap.Error(err))
		}
	}

	h.AuditLog.OrgEvent(ctx, r, audit.EventInvitationAccepted, userID, org.ID, primitive.NilObjectID, map[string]string{
		"invitation_id": inv.ID.Hex(),
		"role":          string(role),
	})
	uierrors.WriteJSON(w, http.StatusOK, acceptResponse{
		OrganizationID: org.ID.Hex(),
		Role:           string(role),
		Context:        sessionvm.Context(s),
	})
}
