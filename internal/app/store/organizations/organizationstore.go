// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatusActive is the only status new organizations are created with.
const StatusActive = "active"

var (
	ErrDuplicateOrganization = errors.New("an organization with this name already exists")
	// ErrOwnerRemoval is returned when removing the owner from their own organization.
	ErrOwnerRemoval = errors.New("the owner cannot be removed from the organization")
	errNoName       = errors.New("organization name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts an organization owned by ownerID. The owner is always the
// first entry of member_ids.
func (s *Store) Create(ctx context.Context, name string, ownerID primitive.ObjectID) (models.Organization, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Organization{}, errNoName
	}
	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   ownerID,
		MemberIDs: []primitive.ObjectID{ownerID},
		Status:    StatusActive,
		CreatedBy: ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// GetByID loads one organization. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetMany loads the organizations in ids. Unknown ids are skipped.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// OrganizationsFor lists every organization userID owns or belongs to,
// ordered by folded name then id.
func (s *Store) OrganizationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Organization, error) {
	filter := bson.M{"$or": []bson.M{
		{"member_ids": userID},
		{"owner_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

// Search returns organizations whose folded name starts with q, for the admin list.
func (s *Store) Search(ctx context.Context, q string, limit int64) ([]models.Organization, error) {
	filter := bson.M{}
	if q = text.Fold(normalize.Name(q)); q != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q)}
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}

// Rename changes the display name.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	name = normalize.Name(name)
	if name == "" {
		return errNoName
	}
	return s.update(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"updated_at": time.Now().UTC(),
	}})
}

// AddMember adds userID to member_ids. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, orgID, userID primitive.ObjectID) error {
	return s.update(ctx, orgID, bson.M{
		"$addToSet": bson.M{"member_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveMember removes userID from both the member list and the legacy
// sub-account list. The owner cannot be removed.
func (s *Store) RemoveMember(ctx context.Context, orgID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": orgID, "owner_id": bson.M{"$ne": userID}},
		bson.M{
			"$pull": bson.M{"member_ids": userID, "sub_account_ids": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, orgID); gerr != nil {
			return gerr
		}
		return ErrOwnerRemoval
	}
	return nil
}

// LinkSubAccount records userID in the legacy sub-account list and as a member.
func (s *Store) LinkSubAccount(ctx context.Context, orgID, userID primitive.ObjectID) error {
	return s.update(ctx, orgID, bson.M{
		"$addToSet": bson.M{"member_ids": userID, "sub_account_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// Delete removes an organization by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, upd bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, upd)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateOrganization
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}
