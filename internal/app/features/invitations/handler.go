// internal/app/features/invitations/handler.go
package invitations

import (
	"strings"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	invitationstore "github.com/dalemusser/orghub/internal/app/store/invitations"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	orgrolestore "github.com/dalemusser/orghub/internal/app/store/orgroles"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/invites"
	"github.com/dalemusser/orghub/internal/app/system/mailer"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler issues, lists, revokes and redeems organization invitations.
type Handler struct {
	Invites    *invitationstore.Store
	Validator  *invites.Validator
	Orgs       *organizationstore.Store
	OrgRoles   *orgrolestore.Store
	Users      *userstore.Store
	Sessions   *orgcontext.Registry
	SessionMgr *auth.SessionManager
	Mail       mailer.Sender
	AuditLog   *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	BaseURL  string // accept links are BaseURL + "/invitations/{token}"
	SiteName string
}

// NewHandler constructs an invitations Handler.
func NewHandler(db *mongo.Database, sm *auth.SessionManager, sessions *orgcontext.Registry, mail mailer.Sender, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, baseURL, siteName string, logger *zap.Logger) *Handler {
	store := invitationstore.New(db)
	return &Handler{
		Invites:    store,
		Validator:  invites.NewValidator(store, logger),
		Orgs:       organizationstore.New(db),
		OrgRoles:   orgrolestore.New(db),
		Users:      userstore.New(db),
		Sessions:   sessions,
		SessionMgr: sm,
		Mail:       mail,
		AuditLog:   auditLog,
		ErrLog:     errLog,
		Log:        logger,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SiteName:   siteName,
	}
}

func (h *Handler) acceptURL(token string) string {
	return h.BaseURL + "/invitations/" + token
}

// invitationVM is an invitation as shown to organization managers. The token
// is only returned once, at creation.
type invitationVM struct {
	ID        string     `json:"id"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Uses      int        `json:"uses"`
	MaxUses   int        `json:"max_uses"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Accepted  *time.Time `json:"accepted_at,omitempty"`
}

func toVM(inv models.Invitation) invitationVM {
	return invitationVM{
		ID:        inv.ID.Hex(),
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    inv.Status,
		Uses:      inv.Uses,
		MaxUses:   inv.MaxUses,
		ExpiresAt: inv.ExpiresAt,
		CreatedBy: inv.CreatedBy.Hex(),
		CreatedAt: inv.CreatedAt,
		Accepted:  inv.AcceptedAt,
	}
}
