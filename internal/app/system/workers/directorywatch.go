// internal/app/system/workers/directorywatch.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// SessionNotifier is the part of the session registry that directory changes drive.
type SessionNotifier interface {
	InvalidateUser(ctx context.Context, userID primitive.ObjectID)
	InvalidateOrg(ctx context.Context, orgID primitive.ObjectID)
	RefreshUser(ctx context.Context, userID primitive.ObjectID)
	RefreshOrg(ctx context.Context, orgID primitive.ObjectID)
	RefreshAll(ctx context.Context)
}

// Watched collections.
const (
	collUsers           = "users"
	collOrganizations   = "organizations"
	collOrgRoles        = "org_roles"
	collRolePermissions = "role_permissions"
)

const (
	minBackoff = time.Second
	maxBackoff = time.Minute
)

// changeEvent is the subset of a change stream document we use.
type changeEvent struct {
	OperationType string   `bson:"operationType"`
	DocumentKey   bson.Raw `bson:"documentKey"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

// DirectoryWatch follows change streams on the directory collections so that
// edits made by any instance reach the live sessions of this one. Change
// streams need a replica set; on a standalone server each watch logs the
// failure and keeps retrying with backoff.
type DirectoryWatch struct {
	db       *mongo.Database
	sessions SessionNotifier
	policy   *rbac.Policy
	log      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDirectoryWatch creates a watcher. Call Start to begin.
func NewDirectoryWatch(db *mongo.Database, sessions SessionNotifier, policy *rbac.Policy, logger *zap.Logger) *DirectoryWatch {
	return &DirectoryWatch{db: db, sessions: sessions, policy: policy, log: logger}
}

// Start launches one watch loop per collection.
func (w *DirectoryWatch) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	for _, name := range []string{collUsers, collOrganizations, collOrgRoles, collRolePermissions} {
		w.wg.Add(1)
		go w.loop(ctx, name)
	}
	w.log.Info("directory watch started")
}

// Stop cancels the watches and waits for them to exit.
func (w *DirectoryWatch) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("directory watch stopped")
}

func (w *DirectoryWatch) loop(ctx context.Context, coll string) {
	defer w.wg.Done()
	backoff := minBackoff
	for {
		err := w.watch(ctx, coll)
		if ctx.Err() != nil {
			return
		}
		w.log.Warn("change stream ended; retrying",
			zap.String("collection", coll),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (w *DirectoryWatch) watch(ctx context.Context, coll string) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := w.db.Collection(coll).Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return err
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			w.log.Warn("undecodable change event", zap.String("collection", coll), zap.Error(err))
			continue
		}
		w.handle(ctx, coll, ev)
	}
	if err := cs.Err(); err != nil {
		return err
	}
	return errors.New("change stream closed")
}

// handle maps one change to session and role-table updates.
func (w *DirectoryWatch) handle(ctx context.Context, coll string, ev changeEvent) {
	switch coll {
	case collUsers:
		if id, ok := objectIDKey(ev.DocumentKey); ok {
			w.sessions.InvalidateUser(ctx, id)
		}

	case collOrganizations:
		id, ok := objectIDKey(ev.DocumentKey)
		if !ok {
			return
		}
		// Sessions that already list the org cover removals and deletes;
		// members named in the new document cover additions.
		w.sessions.RefreshOrg(ctx, id)
		if len(ev.FullDocument) > 0 {
			var org models.Organization
			if err := bson.Unmarshal(ev.FullDocument, &org); err == nil {
				for _, m := range org.MemberIDs {
					w.sessions.RefreshUser(ctx, m)
				}
			}
		}

	case collOrgRoles:
		if len(ev.FullDocument) > 0 {
			var e models.OrgRole
			if err := bson.Unmarshal(ev.FullDocument, &e); err == nil && !e.OrgID.IsZero() {
				// An entry only affects sessions acting in its organization.
				w.sessions.InvalidateOrg(ctx, e.OrgID)
				return
			}
		}
		// Deletes carry only the key; we cannot tell whose role went away.
		w.sessions.RefreshAll(ctx)

	case collRolePermissions:
		if len(ev.FullDocument) == 0 {
			return
		}
		var doc models.RolePermissions
		if err := bson.Unmarshal(ev.FullDocument, &doc); err != nil {
			w.log.Warn("undecodable role_permissions document", zap.Error(err))
			return
		}
		role := rbac.Role(doc.Role)
		set := rbac.PermissionSet{Pages: doc.Pages, Actions: doc.Actions}
		if w.policy.PermissionsForRole(role).Equal(set) {
			return
		}
		if err := w.policy.UpdateRolePermissions(role, set); err != nil {
			w.log.Warn("ignoring role_permissions change", zap.String("role", doc.Role), zap.Error(err))
		}
	}
}

func objectIDKey(key bson.Raw) (primitive.ObjectID, bool) {
	if len(key) == 0 {
		return primitive.NilObjectID, false
	}
	v, err := key.LookupErr("_id")
	if err != nil {
		return primitive.NilObjectID, false
	}
	return v.ObjectIDOK()
}
