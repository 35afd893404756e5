// internal/app/store/orgroles/orgrolestore.go
package orgrolestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errBadRole = errors.New(`role must be "user"|"admin"|"account_owner"|"sub_account_owner"`)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("org_roles")}
}

// Set upserts the explicit role for (orgID, userID).
func (s *Store) Set(ctx context.Context, orgID, userID primitive.ObjectID, role rbac.Role, by primitive.ObjectID) (models.OrgRole, error) {
	if !role.Valid() {
		return models.OrgRole{}, errBadRole
	}
	now := time.Now().UTC()
	upd := bson.M{
		"$set": bson.M{
			"role":       string(role),
			"updated_by": by,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"org_id":     orgID,
			"user_id":    userID,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.OrgRole
	err := s.c.FindOneAndUpdate(ctx, bson.M{"org_id": orgID, "user_id": userID}, upd, opts).Decode(&out)
	if err != nil {
		return models.OrgRole{}, err
	}
	return out, nil
}

// Get returns the explicit role entry. Returns mongo.ErrNoDocuments if none exists.
func (s *Store) Get(ctx context.Context, orgID, userID primitive.ObjectID) (models.OrgRole, error) {
	var e models.OrgRole
	if err := s.c.FindOne(ctx, bson.M{"org_id": orgID, "user_id": userID}).Decode(&e); err != nil {
		return models.OrgRole{}, err
	}
	return e, nil
}

// Delete removes the explicit role, reverting the user to the membership default.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, orgID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"org_id": orgID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByOrg removes every role entry for an organization.
func (s *Store) DeleteByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"org_id": orgID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByOrg returns every explicit role entry in an organization.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.OrgRole, error) {
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.OrgRole
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
