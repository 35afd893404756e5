// internal/app/features/password/handler.go
package password

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/mailer"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the forgot/reset password flow.
type Handler struct {
	Users    *userstore.Store
	Resets   *passwordreset.Store
	Mail     mailer.Sender
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	BaseURL  string // links in emails are BaseURL + "/reset-password?token=..."
	SiteName string
}

// NewHandler constructs a password Handler.
func NewHandler(db *mongo.Database, resets *passwordreset.Store, mail mailer.Sender, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, baseURL, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Resets:   resets,
		Mail:     mail,
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SiteName: siteName,
	}
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,strictemail"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

// HandleForgot handles POST /api/auth/forgot-password.
//
// The answer is the same whether or not the email has an account, so the
// endpoint cannot be used to discover registered addresses.
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Email = normalize.Email(req.Email)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.sendReset(ctx, r, req.Email); err != nil {
		h.ErrLog.Log500(w, r, "forgot password", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

func (h *Handler) sendReset(ctx context.Context, r *http.Request, email string) error {
	u, err := h.Users.GetByEmail(ctx, email)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return err
	}
	if normalize.Status(u.Status) == userstore.StatusDisabled {
		return nil
	}

	token, err := h.Resets.Create(ctx, u.ID)
	if errors.Is(err, passwordreset.ErrTooManyRequests) {
		h.Log.Warn("password reset throttled", zap.String("user_id", u.ID.Hex()))
		return nil
	}
	if err != nil {
		return err
	}

	msg := mailer.BuildPasswordResetEmail(u.Email, mailer.PasswordResetData{
		SiteName:  h.SiteName,
		ResetLink: h.BaseURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: humanize(h.Resets.Expiry().Minutes()),
	})
	if err := h.Mail.Send(ctx, msg); err != nil {
		// The token stays valid; the user can ask again.
		h.Log.Error("password reset email failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return nil
	}
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)
	return nil
}

// HandleReset handles POST /api/auth/reset-password.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if res := inputval.Validate(req); res.HasErrors() {
		uierrors.WriteValidation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	reset, err := h.Resets.Consume(ctx, req.Token)
	if errors.Is(err, passwordreset.ErrNotFound) {
		uierrors.WriteError(w, http.StatusBadRequest, "invalid_token", "This reset link is invalid or has expired.")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "reset password: consume token", err)
		return
	}

	if err := h.Users.SetPassword(ctx, reset.UserID, req.Password); err != nil {
		if err == mongo.ErrNoDocuments {
			uierrors.WriteError(w, http.StatusBadRequest, "invalid_token", "This reset link is invalid or has expired.")
			return
		}
		h.ErrLog.Log500(w, r, "reset password: set password", err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, reset.UserID, "reset")
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

func humanize(minutes float64) string {
	if minutes >= 60 && int(minutes)%60 == 0 {
		h := int(minutes) / 60
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(minutes))
}
