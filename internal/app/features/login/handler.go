// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Sessions   *orgcontext.Registry
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	sessions *orgcontext.Registry,
	limiter *ratelimit.LoginLimiter,
	auditLog *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Sessions:   sessions,
		Limiter:    limiter,
		AuditLog:   auditLog,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,strictemail"`
	Password string `json:"password" validate:"required,max=256"`
}

// HandleLogin handles POST /api/auth/login.
//
// 200 with the principal and its organization context on success; 400 for
// invalid input or credentials; 429 when rate limited.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, req.Email, primitive.NilObjectID)
			uierrors.WriteError(w, http.StatusTooManyRequests, "rate_limited", msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, userstore.ErrInvalidCredentials):
		if u == nil {
			h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, req.Email, primitive.NilObjectID)
		} else {
			h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, req.Email, u.ID)
		}
		uierrors.WriteError(w, http.StatusBadRequest, "invalid_credentials", "Invalid email or password.")
		return
	case errors.Is(err, userstore.ErrDisabled):
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserDisabled, req.Email, u.ID)
		uierrors.WriteError(w, http.StatusBadRequest, "account_disabled", "This account has been disabled.")
		return
	case err != nil:
		h.ErrLog.Log500(w, r, "login: authenticate", err)
		return
	}

	me, err := StartSession(ctx, w, r, h.SessionMgr, h.Sessions, *u)
	if err != nil {
		h.ErrLog.Log500(w, r, "login: start session", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))

	uierrors.WriteJSON(w, http.StatusOK, me)
}

// StartSession signs u in and builds its organization context so the response
// already carries the active organization and permissions. A previous session
// on the same browser is dropped from the registry.
func StartSession(ctx context.Context, w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, sessions *orgcontext.Registry, u models.User) (sessionvm.MeVM, error) {
	if prev, ok := auth.CurrentUser(r); ok && prev.SessionID != "" {
		sessions.Remove(prev.SessionID)
	}
	sid, err := sm.SignIn(w, r, u.ID.Hex())
	if err != nil {
		return sessionvm.MeVM{}, err
	}
	s := sessions.Get(sid, u.ID)
	s.Load(ctx, nil)
	return sessionvm.MeVM{User: sessionvm.FromUser(u), Context: sessionvm.Context(s)}, nil
}
