// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework side (ports, TLS, logging, CORS, body limits); everything here is
// specific to OrgHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: orghub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// In-memory organization context sessions
	SessionIdle          time.Duration // Registry entries unused this long are dropped
	SessionSweepInterval time.Duration // How often the sweeper runs

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address
	MailFromName string // From display name

	// Base URL for email links (invitations, password reset)
	BaseURL  string
	SiteName string

	PasswordResetExpiry time.Duration

	// Audit logging destinations: all, db, log, off
	AuditLogAuth string
	AuditLogOrg  string

	// Login throttling: per IP per minute, per email per five minutes. Zero disables.
	LoginIPLimit    int
	LoginEmailLimit int

	// Watch org_roles and role_permissions with change streams (replica sets only)
	DirectoryWatch bool

	// Promote (or create) this account to the global admin role on startup
	AdminEmail string
}
