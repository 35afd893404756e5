// internal/app/store/announcements/announcementstore.go
package announcementstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errNoTitle = errors.New("announcement title is required")

// Store persists per-organization announcements. Bodies are stored as given;
// callers sanitize them first.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// Create inserts an active announcement.
func (s *Store) Create(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return models.Announcement{}, errNoTitle
	}
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.Active = true
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

// ListByOrg returns an organization's announcements, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, activeOnly bool, limit int64) ([]models.Announcement, error) {
	filter := bson.M{"org_id": orgID}
	if activeOnly {
		filter["active"] = true
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Announcement
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetActive shows or hides an announcement. Returns mongo.ErrNoDocuments when
// id does not belong to orgID.
func (s *Store) SetActive(ctx context.Context, orgID, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID},
		bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes an announcement scoped to orgID. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, orgID, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
