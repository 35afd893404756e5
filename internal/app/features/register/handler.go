// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/login"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns account registration.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Sessions   *orgcontext.Registry
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

// NewHandler constructs a registration Handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, sessions *orgcontext.Registry, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Sessions:   sessions,
		AuditLog:   auditLog,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,strictemail"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

// HandleRegister handles POST /api/auth/register. New accounts always get the
// user global role and are signed in immediately.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName: req.Name,
		Email:    req.Email,
		Role:     string(rbac.RoleUser),
	}, req.Password)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		uierrors.WriteInvalid(w, map[string]string{"email": "An account with this email already exists."})
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "register: create user", err)
		return
	}

	me, err := login.StartSession(ctx, w, r, h.SessionMgr, h.Sessions, u)
	if err != nil {
		h.ErrLog.Log500(w, r, "register: start session", err)
		return
	}
	h.AuditLog.Registered(ctx, r, u.ID)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	uierrors.WriteJSON(w, http.StatusOK, me)
}
