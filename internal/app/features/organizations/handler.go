// internal/app/features/organizations/handler.go
package organizations

import (
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	invitationstore "github.com/dalemusser/orghub/internal/app/store/invitations"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	orgrolestore "github.com/dalemusser/orghub/internal/app/store/orgroles"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns organization create/read/rename/delete.
type Handler struct {
	Orgs     *organizationstore.Store
	OrgRoles *orgrolestore.Store
	Invites  *invitationstore.Store
	Sessions *orgcontext.Registry
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs an organizations Handler.
func NewHandler(db *mongo.Database, sessions *orgcontext.Registry, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:     organizationstore.New(db),
		OrgRoles: orgrolestore.New(db),
		Invites:  invitationstore.New(db),
		Sessions: sessions,
		AuditLog: auditLog,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// orgVM is an organization as returned to the client.
type orgVM struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
	MemberCount int    `json:"member_count"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func toVM(o models.Organization) orgVM {
	return orgVM{
		ID:          o.ID.Hex(),
		Name:        o.Name,
		OwnerID:     o.OwnerID.Hex(),
		MemberCount: len(o.MemberIDs),
		Status:      o.Status,
		CreatedAt:   o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
