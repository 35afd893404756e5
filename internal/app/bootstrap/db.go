// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/orghub/internal/app/store/directory"
	"github.com/dalemusser/orghub/internal/app/system/indexes"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/orghub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and builds the in-process permission
// services that sit on top of it.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, timeouts.Ping())
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	db := client.Database(appCfg.MongoDatabase)
	dir := directory.New(db)

	// Startup replaces the defaults with the stored table.
	policy := rbac.NewDefaultPolicy()
	rv := resolver.New(dir, policy, logger)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Policy:        policy,
		Resolver:      rv,
		Sessions:      orgcontext.NewRegistry(dir, rv, logger),
		Background:    &Background{},
	}, nil
}

// EnsureSchema creates collections, attaches validators and builds indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Validators are best-effort; some deployments reject collMod.
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Warn("validator setup incomplete", zap.Error(err))
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
