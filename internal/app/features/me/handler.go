// internal/app/features/me/handler.go
package me

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the signed-in principal's own view: identity, memberships,
// and the active organization switch.
type Handler struct {
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sessionMgr, AuditLog: auditLog, ErrLog: errLog, Log: logger}
}

// ServeMe handles GET /api/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		auth.Unauthorized(w, r)
		return
	}
	s, _ := orgcontext.FromRequest(r)
	uierrors.WriteJSON(w, http.StatusOK, sessionvm.MeVM{
		User:    sessionvm.FromSessionUser(u),
		Context: sessionvm.Context(s),
	})
}

type organizationsResponse struct {
	ActiveOrganizationID string                     `json:"active_organization_id,omitempty"`
	Organizations        []sessionvm.OrganizationVM `json:"organizations"`
}

// ServeOrganizations handles GET /api/me/organizations.
func (h *Handler) ServeOrganizations(w http.ResponseWriter, r *http.Request) {
	s, ok := orgcontext.FromRequest(r)
	if !ok {
		auth.Unauthorized(w, r)
		return
	}
	v := s.View()
	resp := organizationsResponse{Organizations: sessionvm.Organizations(s.Organizations(), v)}
	if v.ActiveOrgID != nil {
		resp.ActiveOrganizationID = v.ActiveOrgID.Hex()
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

type switchRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,objectid"`
}

// HandleSwitch handles POST /api/me/active-organization.
//
// The target must be in the loaded membership list; otherwise the active
// organization is left unchanged and 400 is returned. On success the new
// context (role and permissions for the target) is returned.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	s, found := orgcontext.FromRequest(r)
	if !ok || !found {
		auth.Unauthorized(w, r)
		return
	}

	var req switchRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}
	orgID, _ := primitive.ObjectIDFromHex(req.OrganizationID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prev := s.ActiveOrgID()
	if err := s.Switch(ctx, orgID); err != nil {
		if errors.Is(err, orgcontext.ErrNotMember) {
			uierrors.WriteError(w, http.StatusBadRequest, "not_a_member", "You are not a member of that organization.")
			return
		}
		if errors.Is(err, orgcontext.ErrNotLoaded) {
			uierrors.WriteError(w, http.StatusServiceUnavailable, "context_loading", "Organization list is still loading.")
			return
		}
		h.ErrLog.Log500(w, r, "switch organization", err)
		return
	}

	if err := h.SessionMgr.SetActiveOrgHint(w, r, orgID.Hex()); err != nil {
		// The switch itself succeeded; only the reload hint is lost.
		h.Log.Warn("could not persist active organization", zap.Error(err))
	}
	details := map[string]string{}
	if prev != nil {
		details["from"] = prev.Hex()
	}
	h.AuditLog.OrgEvent(ctx, r, audit.EventOrgSwitched, userID, orgID, primitive.NilObjectID, details)

	uierrors.WriteJSON(w, http.StatusOK, sessionvm.Context(s))
}

// HandleRefresh handles POST /api/me/organizations/refresh. It reloads the
// membership list, keeping the active organization when it is still present.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	s, ok := orgcontext.FromRequest(r)
	if !ok {
		auth.Unauthorized(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	s.Refresh(ctx)
	uierrors.WriteJSON(w, http.StatusOK, sessionvm.Context(s))
}
