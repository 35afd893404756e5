// internal/app/features/roles/handler.go
package roles

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	rolepermstore "github.com/dalemusser/orghub/internal/app/store/rolepermissions"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler reads and edits the role table.
type Handler struct {
	Store    *rolepermstore.Store
	Policy   *rbac.Policy
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, policy *rbac.Policy, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    rolepermstore.New(db),
		Policy:   policy,
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type roleVM struct {
	Role    string   `json:"role"`
	Pages   []string `json:"pages"`
	Actions []string `json:"actions"`
}

type tableResponse struct {
	Version    uint64   `json:"version"`
	AllPages   []string `json:"all_pages"`
	AllActions []string `json:"all_actions"`
	Roles      []roleVM `json:"roles"`
}

// updateRequest lists the names to allow. Anything not listed is denied.
type updateRequest struct {
	Pages   []string `json:"pages"`
	Actions []string `json:"actions"`
}

func allowed(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ServeTable handles GET /api/roles.
func (h *Handler) ServeTable(w http.ResponseWriter, r *http.Request) {
	snap := h.Policy.Snapshot()
	resp := tableResponse{
		Version:    h.Policy.Version(),
		AllPages:   rbac.AllPages,
		AllActions: rbac.AllActions,
	}
	for _, role := range rbac.AllRoles {
		set := snap[role]
		resp.Roles = append(resp.Roles, roleVM{Role: string(role), Pages: allowed(set.Pages), Actions: allowed(set.Actions)})
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

func known(all []string) map[string]bool {
	m := make(map[string]bool, len(all))
	for _, n := range all {
		m[n] = true
	}
	return m
}

// HandleUpdate handles PUT /api/roles/{role}. The new set is stored first and
// then published, so every live session resolved to the role sees it at once.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, _ := authz.UserCtx(r)
	role, ok := rbac.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		uierrors.WriteError(w, http.StatusNotFound, "unknown_role", "")
		return
	}

	var req updateRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	fields := map[string]string{}
	set := rbac.PermissionSet{Pages: map[string]bool{}, Actions: map[string]bool{}}
	pages, actions := known(rbac.AllPages), known(rbac.AllActions)
	for _, p := range req.Pages {
		if !pages[p] {
			fields["pages"] = "unknown page " + p
			break
		}
		set.Pages[p] = true
	}
	for _, a := range req.Actions {
		if !actions[a] {
			fields["actions"] = "unknown action " + a
			break
		}
		set.Actions[a] = true
	}
	if role == rbac.RoleAdmin && !set.Actions[rbac.ActionManageRolePermissions] {
		fields["actions"] = "admin must keep manage_role_permissions."
	}
	if len(fields) > 0 {
		uierrors.WriteInvalid(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var by *primitive.ObjectID
	if !actorID.IsZero() {
		by = &actorID
	}
	if err := h.Store.Save(ctx, role, set, by); err != nil {
		h.ErrLog.Log500(w, r, "save role permissions", err)
		return
	}
	if err := h.Policy.UpdateRolePermissions(role, set); err != nil {
		h.ErrLog.Log500(w, r, "apply role permissions", err)
		return
	}

	h.AuditLog.OrgEvent(ctx, r, audit.EventRolePermissionsUpdate, actorID, primitive.NilObjectID, primitive.NilObjectID, map[string]string{
		"role":    string(role),
		"version": strconv.FormatUint(h.Policy.Version(), 10),
	})
	uierrors.WriteJSON(w, http.StatusOK, roleVM{Role: string(role), Pages: allowed(set.Pages), Actions: allowed(set.Actions)})
}
