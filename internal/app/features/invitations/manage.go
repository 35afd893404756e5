// internal/app/features/invitations/manage.go
package invitations

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/invites"
	"github.com/dalemusser/orghub/internal/app/system/mailer"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type createRequest struct {
	Email          string `json:"email" validate:"omitempty,strictemail"`
	Role           string `json:"role" validate:"required,role"`
	MaxUses        int    `json:"max_uses" validate:"omitempty,gte=1,lte=1000"`
	ExpiresInHours int    `json:"expires_in_hours" validate:"omitempty,gte=1,lte=720"`
}

type createResponse struct {
	Invitation invitationVM `json:"invitation"`
	Token      string       `json:"token"`
	AcceptURL  string       `json:"accept_url"`
}

// HandleCreate handles POST /api/organizations/{orgID}/invitations.
// The invited role may not be above the inviter's own.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, inviterName, actorID, _ := authz.UserCtx(r)
	actorRole, _ := authz.EffectiveRole(r)
	orgID := authz.ActiveOrgID(r)

	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}
	role, _ := rbac.ParseRole(req.Role)
	if !role.OrgAssignable() {
		uierrors.WriteInvalid(w, map[string]string{"role": "admin cannot be assigned within an organization."})
		return
	}
	if !rbac.CanGrant(actorRole, role) {
		h.AuditLog.AccessDenied(r.Context(), r, actorID, "grant", string(role))
		authz.Forbidden(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
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
	if req.Email != "" {
		if u, err := h.Users.GetByEmail(ctx, req.Email); err == nil && org.HasMember(u.ID) {
			uierrors.WriteError(w, http.StatusBadRequest, "already_member", "That person is already a member of this organization.")
			return
		}
	}

	inv := models.Invitation{
		OrgID:     orgID,
		Email:     req.Email,
		Role:      string(role),
		MaxUses:   req.MaxUses,
		CreatedBy: actorID,
	}
	if req.ExpiresInHours > 0 {
		inv.ExpiresAt = time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
	}
	inv, err = h.Invites.Create(ctx, inv)
	if err != nil {
		h.ErrLog.Log500(w, r, "create invitation", err)
		return
	}

	link := h.acceptURL(inv.Token)
	if inv.Email != "" && h.Mail != nil {
		msg := mailer.BuildInvitationEmail(inv.Email, mailer.InvitationData{
			SiteName:    h.SiteName,
			OrgName:     org.Name,
			InviterName: inviterName,
			Role:        inv.Role,
			AcceptLink:  link,
			ExpiresOn:   inv.ExpiresAt.Format("January 2, 2006"),
		})
		// The invitation stands even if delivery fails; the link is in the response.
		if err := h.Mail.Send(ctx, msg); err != nil {
			h.Log.Warn("invitation email failed", zap.String("org_id", orgID.Hex()), zap.Error(err))
		}
	}

	h.AuditLog.OrgEvent(ctx, r, audit.EventInvitationCreated, actorID, orgID, primitive.NilObjectID, map[string]string{
		"invitation_id": inv.ID.Hex(),
		"role":          inv.Role,
		"email":         inv.Email,
	})
	uierrors.WriteJSON(w, http.StatusCreated, createResponse{Invitation: toVM(inv), Token: inv.Token, AcceptURL: link})
}

var listStatuses = map[string]bool{
	"":                        true,
	models.InvitationActive:   true,
	models.InvitationAccepted: true,
	models.InvitationReplaced: true,
	models.InvitationRevoked:  true,
}

// ServeList handles GET /api/organizations/{orgID}/invitations[?status=].
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	orgID := authz.ActiveOrgID(r)
	status := normalize.Status(r.URL.Query().Get("status"))
	if !listStatuses[status] {
		uierrors.WriteInvalid(w, map[string]string{"status": "status must be one of active, accepted, replaced, revoked."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	invs, err := h.Invites.ListByOrg(ctx, orgID, status)
	if err != nil {
		h.ErrLog.Log500(w, r, "list invitations", err)
		return
	}
	out := make([]invitationVM, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toVM(inv))
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// HandleRevoke handles DELETE /api/organizations/{orgID}/invitations/{id}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	orgID := authz.ActiveOrgID(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteInvalid(w, map[string]string{"id": "id must be a valid id."})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Invites.Revoke(ctx, orgID, id)
	if errors.Is(err, invites.ErrNotFound) {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "No active invitation with that id.")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "revoke invitation", err)
		return
	}
	h.AuditLog.OrgEvent(ctx, r, audit.EventInvitationRevoked, actorID, orgID, primitive.NilObjectID, map[string]string{"invitation_id": id.Hex()})
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// emailMatches reports whether the signed-in user may use an invitation
// addressed to invEmailCI. Open invitations match anyone.
func emailMatches(u *auth.SessionUser, invEmailCI string) bool {
	return invEmailCI == "" || text.Fold(normalize.Email(u.Email)) == invEmailCI
}
