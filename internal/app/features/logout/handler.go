// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Sessions   *orgcontext.Registry
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, sessions *orgcontext.Registry, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Sessions:   sessions,
		AuditLog:   auditLog,
	}
}

// HandleLogout handles POST /api/auth/logout. It always answers 200; signing
// out an anonymous browser just clears the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		// Drop the cached organization context with the cookie.
		if u.SessionID != "" {
			h.Sessions.Remove(u.SessionID)
		}
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
