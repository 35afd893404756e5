// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	announcementsfeature "github.com/dalemusser/orghub/internal/app/features/announcements"
	auditlogfeature "github.com/dalemusser/orghub/internal/app/features/auditlog"
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/orghub/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/orghub/internal/app/features/invitations"
	loginfeature "github.com/dalemusser/orghub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/orghub/internal/app/features/logout"
	mefeature "github.com/dalemusser/orghub/internal/app/features/me"
	membersfeature "github.com/dalemusser/orghub/internal/app/features/members"
	organizationsfeature "github.com/dalemusser/orghub/internal/app/features/organizations"
	passwordfeature "github.com/dalemusser/orghub/internal/app/features/password"
	registerfeature "github.com/dalemusser/orghub/internal/app/features/register"
	rolesfeature "github.com/dalemusser/orghub/internal/app/features/roles"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	passwordreset "github.com/dalemusser/orghub/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auditlog"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/mailer"
	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every request passes through panic recovery,
// metrics, the cookie session, and the organization context registry, in
// that order, before reaching a feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the user on every request so role changes and
	// disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := uierrors.NewErrorLogger(logger)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth: appCfg.AuditLogAuth,
		Org:  appCfg.AuditLogOrg,
	})
	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	var limiter *ratelimit.LoginLimiter
	if deps.Background != nil {
		limiter = deps.Background.LoginLimiter
	}

	r := chi.NewRouter()
	r.Use(errLog.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(deps.Sessions.Middleware)

	errorsHandler := uierrors.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Sessions, deps.Policy, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, deps.Sessions, limiter, auditLog, errLog, logger)
	logoutHandler := logoutfeature.NewHandler(sessionMgr, deps.Sessions, auditLog, logger)
	registerHandler := registerfeature.NewHandler(db, sessionMgr, deps.Sessions, auditLog, errLog, logger)
	passwordHandler := passwordfeature.NewHandler(db, passwordreset.New(db, appCfg.PasswordResetExpiry),
		mail, auditLog, errLog, appCfg.BaseURL, appCfg.SiteName, logger)
	r.Route("/api/auth", func(ar chi.Router) {
		loginHandler.MountRoutes(ar)
		logoutHandler.MountRoutes(ar)
		registerHandler.MountRoutes(ar)
		passwordHandler.MountRoutes(ar)
	})

	// Current principal and organization context switching
	meHandler := mefeature.NewHandler(sessionMgr, auditLog, errLog, logger)
	r.Mount("/api/me", mefeature.Routes(meHandler, sessionMgr))

	// Organizations and everything scoped to one
	orgHandler := organizationsfeature.NewHandler(db, deps.Sessions, auditLog, errLog, logger)
	membersHandler := membersfeature.NewHandler(db, deps.Resolver, deps.Sessions, auditLog, errLog, logger)
	invitationsHandler := invitationsfeature.NewHandler(db, sessionMgr, deps.Sessions, mail, auditLog, errLog,
		appCfg.BaseURL, appCfg.SiteName, logger)
	announcementsHandler := announcementsfeature.NewHandler(db, auditLog, errLog, logger)
	r.Mount("/api/organizations", organizationsfeature.Routes(orgHandler, sessionMgr,
		membersHandler.MountRoutes,
		invitationsHandler.MountRoutes,
		announcementsHandler.MountRoutes,
	))

	// Token-addressed invitation preview and acceptance
	r.Mount("/api/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr))

	// Role table administration
	rolesHandler := rolesfeature.NewHandler(db, deps.Policy, auditLog, errLog, logger)
	r.Mount("/api/roles", rolesfeature.Routes(rolesHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
