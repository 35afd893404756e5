// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the audit log to administrators.
type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Orgs   *organizationstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  audit.New(db),
		Users:  userstore.New(db),
		Orgs:   organizationstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}
