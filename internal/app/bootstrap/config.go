// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLen is the shortest signing key accepted outside dev.
const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for OrgHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: ORGHUB_MONGO_URI, ORGHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "orghub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "orghub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},
	{Name: "session_idle", Default: "2h", Desc: "Drop in-memory org context after this much inactivity"},
	{Name: "session_sweep_interval", Default: "5m", Desc: "How often idle org contexts are swept"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@orghub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "OrgHub", Desc: "From display name"},

	// Links in outgoing mail
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "site_name", Default: "OrgHub", Desc: "Product name used in emails"},
	{Name: "password_reset_expiry", Default: "1h", Desc: "Password reset link lifetime (e.g., 30m, 1h)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_org", Default: "all", Desc: "Organization event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Login throttling
	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts per minute per client IP (0 disables limiting)"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts per five minutes per email (0 disables limiting)"},

	{Name: "directory_watch", Default: false, Desc: "Watch org_roles and role_permissions via change streams (requires a replica set)"},
	{Name: "admin_email", Default: "", Desc: "Email of the global admin (promotes/creates on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// ORGHUB_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ORGHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:           appValues.String("session_key"),
		SessionName:          appValues.String("session_name"),
		SessionDomain:        appValues.String("session_domain"),
		SessionMaxAge:        appValues.Duration("session_max_age", 30*24*time.Hour),
		SessionIdle:          appValues.Duration("session_idle", 2*time.Hour),
		SessionSweepInterval: appValues.Duration("session_sweep_interval", 5*time.Minute),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:             appValues.String("base_url"),
		SiteName:            appValues.String("site_name"),
		PasswordResetExpiry: appValues.Duration("password_reset_expiry", time.Hour),

		AuditLogAuth: appValues.String("audit_log_auth"),
		AuditLogOrg:  appValues.String("audit_log_org"),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginEmailLimit: appValues.Int("login_email_limit"),

		DirectoryWatch: appValues.Bool("directory_watch"),
		AdminEmail:     appValues.String("admin_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	if len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d bytes", minSessionKeyLen)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("session_key must be changed in production")
	}

	if appCfg.SessionIdle <= 0 || appCfg.SessionSweepInterval <= 0 {
		return fmt.Errorf("session_idle and session_sweep_interval must be positive")
	}
	if appCfg.PasswordResetExpiry <= 0 {
		return fmt.Errorf("password_reset_expiry must be positive")
	}
	if appCfg.LoginIPLimit < 0 || appCfg.LoginEmailLimit < 0 {
		return fmt.Errorf("login limits must not be negative")
	}

	for name, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_org": appCfg.AuditLogOrg} {
		switch v {
		case "", "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}
	return nil
}
