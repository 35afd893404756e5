// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// The role table, resolver and session registry are built with the database
// connection because every later hook shares them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Policy   *rbac.Policy
	Resolver *resolver.Resolver
	Sessions *orgcontext.Registry

	// Background is filled in by Startup and torn down by Shutdown.
	Background *Background
}

// Background holds long-running workers started after the schema is ready.
type Background struct {
	Sweeper      *workers.SessionSweeper
	Watch        *workers.DirectoryWatch
	LoginLimiter *ratelimit.LoginLimiter
}
