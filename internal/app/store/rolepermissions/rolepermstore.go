// internal/app/store/rolepermissions/rolepermstore.go
package rolepermstore

import (
	"context"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store persists the role table, one document per role keyed by role name.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("role_permissions")}
}

// LoadAll returns every stored role set. Documents naming an unknown role
// are skipped and logged.
func (s *Store) LoadAll(ctx context.Context) (map[rbac.Role]rbac.PermissionSet, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.RolePermissions
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make(map[rbac.Role]rbac.PermissionSet, len(docs))
	for _, d := range docs {
		role := rbac.Role(d.Role)
		if !role.Valid() {
			zap.L().Warn("ignoring role_permissions document for unknown role", zap.String("role", d.Role))
			continue
		}
		out[role] = rbac.PermissionSet{Pages: d.Pages, Actions: d.Actions}.Clone()
	}
	return out, nil
}

// Save replaces both maps for role.
func (s *Store) Save(ctx context.Context, role rbac.Role, set rbac.PermissionSet, by *primitive.ObjectID) error {
	if !role.Valid() {
		return rbac.ErrUnknownRole
	}
	set = set.Clone()
	if set.Pages == nil {
		set.Pages = map[string]bool{}
	}
	if set.Actions == nil {
		set.Actions = map[string]bool{}
	}
	upd := bson.M{"$set": bson.M{
		"pages":      set.Pages,
		"actions":    set.Actions,
		"updated_by": by,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": string(role)}, upd, options.Update().SetUpsert(true))
	return err
}

// Seed stores table entries for roles that have no document yet. Existing
// documents are left untouched.
func (s *Store) Seed(ctx context.Context, table map[rbac.Role]rbac.PermissionSet) (int, error) {
	now := time.Now().UTC()
	seeded := 0
	for _, role := range rbac.AllRoles {
		set, ok := table[role]
		if !ok {
			continue
		}
		set = set.Clone()
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": string(role)},
			bson.M{"$setOnInsert": bson.M{
				"pages":      set.Pages,
				"actions":    set.Actions,
				"updated_at": now,
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return seeded, err
		}
		if res.UpsertedCount > 0 {
			seeded++
		}
	}
	return seeded, nil
}
