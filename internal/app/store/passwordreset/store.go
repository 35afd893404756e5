// internal/app/store/passwordreset/store.go
package passwordreset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// TokenLength is the reset token size in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a reset link is valid.
	DefaultExpiry = 30 * time.Minute
	// MaxRequests is how many reset links one user may request per RequestWindow.
	MaxRequests = 3
	// RequestWindow is the window for MaxRequests.
	RequestWindow = time.Hour
)

var (
	// ErrNotFound is returned when a reset token is unknown, used, or expired.
	ErrNotFound = errors.New("reset token not found or expired")
	// ErrTooManyRequests is returned when a user asks for too many links.
	ErrTooManyRequests = errors.New("too many password reset requests")
)

// Reset is a pending password reset. Only the SHA-256 of the token is stored.
type Reset struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id"`
	TokenHash    string             `bson:"token"`
	ExpiresAt    time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt    time.Time          `bson:"created_at"`
	RequestCount int                `bson:"request_count"`
	WindowStart  time.Time          `bson:"window_start"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("password_resets"),
		expiry: expiry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Expiry returns how long issued tokens stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create issues a fresh token for userID, replacing any earlier one, and
// returns the plain token to send by email.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	now := s.now()

	count, windowStart := 1, now
	var existing Reset
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&existing); err == nil {
		if now.Before(existing.WindowStart.Add(RequestWindow)) {
			if existing.RequestCount >= MaxRequests {
				return "", ErrTooManyRequests
			}
			count, windowStart = existing.RequestCount+1, existing.WindowStart
		}
	} else if err != mongo.ErrNoDocuments {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", fmt.Errorf("clear previous resets: %w", err)
	}
	r := Reset{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		TokenHash:    hashToken(token),
		ExpiresAt:    now.Add(s.expiry),
		CreatedAt:    now,
		RequestCount: count,
		WindowStart:  windowStart,
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert reset: %w", err)
	}
	return token, nil
}

// Consume validates token and deletes it in one step (single use).
func (s *Store) Consume(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      hashToken(token),
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// DeleteByUser deletes all reset records for a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func generateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
