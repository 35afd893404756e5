// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	orgstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	rolepermstore "github.com/dalemusser/orghub/internal/app/store/rolepermissions"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/app/system/workers"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It loads the stored role table into the shared policy, bootstraps the
// global admin, and starts background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}
	metrics.Init()

	if err := loadRoleTable(ctx, deps, logger); err != nil {
		return err
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}

	bg := deps.Background
	if appCfg.LoginIPLimit > 0 && appCfg.LoginEmailLimit > 0 {
		bg.LoginLimiter = ratelimit.NewLoginLimiter(appCfg.LoginIPLimit, appCfg.LoginEmailLimit)
	} else {
		logger.Warn("login rate limiting disabled")
	}

	bg.Sweeper = workers.NewSessionSweeper(deps.Sessions, logger, appCfg.SessionSweepInterval, appCfg.SessionIdle)
	bg.Sweeper.Start()

	if appCfg.DirectoryWatch {
		bg.Watch = workers.NewDirectoryWatch(deps.MongoDatabase, deps.Sessions, deps.Policy, logger)
		bg.Watch.Start()
	}
	return nil
}

// loadRoleTable seeds missing role documents from the built-in defaults, then
// replaces every in-memory set with the stored one.
func loadRoleTable(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	store := rolepermstore.New(deps.MongoDatabase)

	seedCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	seeded, err := store.Seed(seedCtx, rbac.DefaultTable())
	if err != nil {
		return fmt.Errorf("seed role permissions: %w", err)
	}
	if seeded > 0 {
		logger.Info("seeded role permissions", zap.Int("roles", seeded))
	}

	table, err := store.LoadAll(seedCtx)
	if err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}
	for role, set := range table {
		if err := deps.Policy.UpdateRolePermissions(role, set); err != nil {
			return fmt.Errorf("apply role permissions for %s: %w", role, err)
		}
	}
	logger.Info("role table loaded",
		zap.Int("roles", len(table)),
		zap.Uint64("version", deps.Policy.Version()))
	return nil
}

// ensureAdmin promotes the account with email to the global admin role,
// creating it when missing. A created account has a random password; the
// owner signs in after a password reset.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)
	email = strings.TrimSpace(email)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created, cerr := users.Create(ctx, models.User{
			FullName: "Administrator",
			Email:    email,
			Role:     string(rbac.RoleAdmin),
		}, uuid.NewString())
		if cerr != nil {
			return fmt.Errorf("create admin: %w", cerr)
		}
		logger.Info("created global admin", zap.String("user_id", created.ID.Hex()))
		return nil
	case err != nil:
		return fmt.Errorf("look up admin: %w", err)
	}

	if role, _ := rbac.ParseRole(u.Role); role != rbac.RoleAdmin {
		if err := users.SetRole(ctx, u.ID, rbac.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		logger.Info("promoted global admin", zap.String("user_id", u.ID.Hex()))
	}
	warnAdminMemberships(ctx, deps, u.ID, logger)
	return nil
}

// warnAdminMemberships flags an admin account that belongs to organizations.
// Such a session always has an active organization and resolves to its
// per-organization role, which never includes the admin page or
// manage_role_permissions.
func warnAdminMemberships(ctx context.Context, deps DBDeps, userID primitive.ObjectID, logger *zap.Logger) {
	orgs, err := orgstore.New(deps.MongoDatabase).OrganizationsFor(ctx, userID)
	if err != nil {
		logger.Warn("could not check admin memberships", zap.Error(err))
		return
	}
	if len(orgs) == 0 {
		return
	}
	logger.Warn("global admin belongs to organizations; role table and audit administration need an account without memberships",
		zap.String("user_id", userID.Hex()),
		zap.Int("organizations", len(orgs)))
}
