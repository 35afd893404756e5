// internal/app/features/announcements/announcements.go
package announcements

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const listLimit = 50

type createRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=20000"`
}

type toggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// List handles GET /api/organizations/{orgID}/announcements. Hidden
// announcements are only listed for callers who can post.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID := authz.ActiveOrgID(r)
	activeOnly := !authz.CanPerformAction(r, rbac.ActionPostAnnouncements)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Store.ListByOrg(ctx, orgID, activeOnly, listLimit)
	if err != nil {
		h.ErrLog.Log500(w, r, "list announcements", err)
		return
	}
	if items == nil {
		items = []models.Announcement{}
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"announcements": items})
}

// Create handles POST /api/organizations/{orgID}/announcements.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	orgID := authz.ActiveOrgID(r)

	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Title = normalize.Name(req.Title)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Store.Create(ctx, models.Announcement{
		OrgID:     orgID,
		Title:     req.Title,
		Body:      htmlsanitize.PrepareBody(req.Body),
		CreatedBy: actorID,
	})
	if err != nil {
		h.ErrLog.Log500(w, r, "create announcement", err)
		return
	}
	h.AuditLog.OrgEvent(ctx, r, audit.EventAnnouncementPosted, actorID, orgID, primitive.NilObjectID, map[string]string{
		"announcement_id": a.ID.Hex(),
		"title":           a.Title,
	})
	uierrors.WriteJSON(w, http.StatusCreated, a)
}

func announcementID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteInvalid(w, map[string]string{"id": "id must be a valid id."})
		return id, false
	}
	return id, true
}

// Toggle handles PATCH /api/organizations/{orgID}/announcements/{id}.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	orgID := authz.ActiveOrgID(r)
	id, ok := announcementID(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Store.SetActive(ctx, orgID, id, *req.Active)
	if err == mongo.ErrNoDocuments {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "toggle announcement", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"id": id.Hex(), "active": *req.Active})
}

// Delete handles DELETE /api/organizations/{orgID}/announcements/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	orgID := authz.ActiveOrgID(r)
	id, ok := announcementID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Store.Delete(ctx, orgID, id)
	if err != nil {
		h.ErrLog.Log500(w, r, "delete announcement", err)
		return
	}
	if n == 0 {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	h.AuditLog.OrgEvent(ctx, r, audit.EventAnnouncementDeleted, actorID, orgID, primitive.NilObjectID, map[string]string{"announcement_id": id.Hex()})
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
