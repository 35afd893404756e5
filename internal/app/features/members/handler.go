// internal/app/features/members/handler.go
package members

import (
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	orgrolestore "github.com/dalemusser/orghub/internal/app/store/orgroles"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lists the members of the active organization and manages their
// roles and membership.
type Handler struct {
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Users    *userstore.Store
	Orgs     *organizationstore.Store
	OrgRoles *orgrolestore.Store
	Resolver *resolver.Resolver
	Sessions *orgcontext.Registry
}

func NewHandler(db *mongo.Database, rv *resolver.Resolver, sessions *orgcontext.Registry, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Users:    userstore.New(db),
		Orgs:     organizationstore.New(db),
		OrgRoles: orgrolestore.New(db),
		Resolver: rv,
		Sessions: sessions,
	}
}
