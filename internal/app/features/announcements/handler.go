// internal/app/features/announcements/handler.go
package announcements

import (
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	announcementstore "github.com/dalemusser/orghub/internal/app/store/announcements"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all Announcements handlers.
type Handler struct {
	Store    *announcementstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs an Announcements Handler.
func NewHandler(db *mongo.Database, auditLog *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    announcementstore.New(db),
		AuditLog: auditLog,
		Log:      logger,
		ErrLog:   errLog,
	}
}
