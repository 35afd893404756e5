// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (register, login, logout, password).
	Auth string
	// Org controls logging for organization events (membership, roles, invitations).
	Org string
}

// Logger writes audit events to MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. Empty config values default to "all".
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if config.Auth == "" {
		config.Auth = DestAll
	}
	if config.Org == "" {
		config.Org = DestAll
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests and optional wiring can skip auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryOrg:
		setting = l.config.Org
	default:
		setting = DestAll
	}
	if setting == DestOff {
		return
	}
	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}
	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func base(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func oid(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

// --- Authentication Events ---

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventRegistered, true)
	e.UserID = oid(userID)
	l.Log(ctx, e)
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = oid(userID)
	l.Log(ctx, e)
}

// LoginFailed logs a failed login. eventType is one of the EventLoginFailed* constants.
// userID is zero when the email matched no account.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email string, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, eventType, false)
	e.UserID = oid(userID)
	e.FailureReason = eventType
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// Logout logs a sign-out. Invalid ids are ignored.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	e := base(r, audit.CategoryAuth, audit.EventLogout, true)
	if id, err := primitive.ObjectIDFromHex(userID); err == nil {
		e.UserID = &id
	}
	l.Log(ctx, e)
}

// PasswordResetRequested logs a reset link being issued.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := base(r, audit.CategoryAuth, audit.EventPasswordResetRequested, true)
	e.UserID = oid(userID)
	l.Log(ctx, e)
}

// PasswordChanged logs a completed password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	e := base(r, audit.CategoryAuth, audit.EventPasswordChanged, true)
	e.UserID = oid(userID)
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// --- Organization Events ---

// OrgEvent logs an organization-scoped change made by actor. target is the
// affected user (zero when none).
func (l *Logger) OrgEvent(ctx context.Context, r *http.Request, eventType string, actor, orgID, target primitive.ObjectID, details map[string]string) {
	e := base(r, audit.CategoryOrg, eventType, true)
	e.ActorID = oid(actor)
	e.OrganizationID = oid(orgID)
	e.UserID = oid(target)
	e.Details = details
	l.Log(ctx, e)
}

// InvitationRejected logs a failed redemption with its reason.
func (l *Logger) InvitationRejected(ctx context.Context, r *http.Request, actor primitive.ObjectID, orgID primitive.ObjectID, reason string) {
	e := base(r, audit.CategoryOrg, audit.EventInvitationRejected, false)
	e.ActorID = oid(actor)
	e.OrganizationID = oid(orgID)
	e.FailureReason = reason
	l.Log(ctx, e)
}

// --- Security Events ---

// AccessDenied logs a guard denial.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, actor primitive.ObjectID, guard, name string) {
	e := base(r, audit.CategorySecurity, audit.EventAccessDenied, false)
	e.ActorID = oid(actor)
	e.FailureReason = guard + ":" + name
	e.Details = map[string]string{"path": r.URL.Path}
	l.Log(ctx, e)
}
