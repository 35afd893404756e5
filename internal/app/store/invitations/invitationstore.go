// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/invites"
	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TokenLength is the token size in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultTTL is how long an invitation stays redeemable.
	DefaultTTL = 7 * 24 * time.Hour
)

var (
	errBadRole    = errors.New("invitation role is not a known role")
	errNoOrg      = errors.New("invitation organization is required")
	errTokenClash = errors.New("could not allocate a unique invitation token")
)

// Store persists invitations. It satisfies invites.Lookup.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

var _ invites.Lookup = (*Store)(nil)

// Create issues a new active invitation with a fresh token. Any still-active
// invitation for the same organization and email is marked replaced first.
// Zero MaxUses means single use; zero ExpiresAt means DefaultTTL from now.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.OrgID.IsZero() {
		return models.Invitation{}, errNoOrg
	}
	role, ok := rbac.ParseRole(inv.Role)
	if !ok {
		return models.Invitation{}, errBadRole
	}

	now := time.Now().UTC()
	inv.ID = primitive.NewObjectID()
	inv.Role = string(role)
	inv.Email = normalize.Email(inv.Email)
	inv.EmailCI = text.Fold(inv.Email)
	inv.Status = models.InvitationActive
	inv.Uses = 0
	inv.AcceptedBy = nil
	inv.AcceptedAt = nil
	if inv.MaxUses <= 0 {
		inv.MaxUses = 1
	}
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(DefaultTTL)
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if inv.EmailCI != "" {
		_, err := s.c.UpdateMany(ctx,
			bson.M{"org_id": inv.OrgID, "email_ci": inv.EmailCI, "status": models.InvitationActive},
			bson.M{"$set": bson.M{"status": models.InvitationReplaced, "updated_at": now}})
		if err != nil {
			return models.Invitation{}, err
		}
	}

	// A token collision is astronomically unlikely; retry a couple of times anyway.
	for attempt := 0; attempt < 3; attempt++ {
		tok, err := generateToken()
		if err != nil {
			return models.Invitation{}, err
		}
		inv.Token = tok
		if _, err := s.c.InsertOne(ctx, inv); err != nil {
			if wafflemongo.IsDup(err) {
				continue
			}
			return models.Invitation{}, err
		}
		return inv, nil
	}
	return models.Invitation{}, errTokenClash
}

// ByToken returns the invitation for token. With anyStatus=false only active
// invitations match.
func (s *Store) ByToken(ctx context.Context, token string, anyStatus bool) (models.Invitation, error) {
	filter := bson.M{"token": token}
	if !anyStatus {
		filter["status"] = models.InvitationActive
	}
	var inv models.Invitation
	if err := s.c.FindOne(ctx, filter).Decode(&inv); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Invitation{}, invites.ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// Consume atomically records one redemption. The filter is the guard: the
// document must be active, unexpired at now, and below its use limit. The
// redemption that reaches max_uses flips status to accepted in the same write.
// Legacy documents with max_uses <= 0 are unlimited.
func (s *Store) Consume(ctx context.Context, token string, userID primitive.ObjectID, now time.Time) (models.Invitation, error) {
	now = now.UTC()
	filter := bson.M{
		"token":      token,
		"status":     models.InvitationActive,
		"expires_at": bson.M{"$gt": now},
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$lte": bson.A{"$max_uses", 0}},
			bson.M{"$lt": bson.A{"$uses", "$max_uses"}},
		}},
	}
	nextUses := bson.M{"$add": bson.A{"$uses", 1}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"uses":        nextUses,
			"accepted_by": userID,
			"accepted_at": now,
			"updated_at":  now,
			"status": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$gt": bson.A{"$max_uses", 0}},
					bson.M{"$gte": bson.A{nextUses, "$max_uses"}},
				}},
				models.InvitationAccepted,
				"$status",
			}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var inv models.Invitation
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&inv); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Invitation{}, invites.ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// Revoke withdraws an active invitation belonging to orgID.
// Returns invites.ErrNotFound when nothing active matched.
func (s *Store) Revoke(ctx context.Context, orgID, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "org_id": orgID, "status": models.InvitationActive},
		bson.M{"$set": bson.M{"status": models.InvitationRevoked, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return invites.ErrNotFound
	}
	return nil
}

// RevokeByOrg withdraws every active invitation of orgID and returns how many
// were revoked.
func (s *Store) RevokeByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"org_id": orgID, "status": models.InvitationActive},
		bson.M{"$set": bson.M{"status": models.InvitationRevoked, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListByOrg returns an organization's invitations, newest first. An empty
// status lists all of them.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.Invitation, error) {
	filter := bson.M{"org_id": orgID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Invitation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func generateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
