package userstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/normalize"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDisabled is returned by Authenticate for a disabled account.
	ErrDisabled = errors.New("account is disabled")

	errBadRole     = errors.New(`role must be "user"|"admin"|"account_owner"|"sub_account_owner"`)
	errBadStatus   = errors.New(`status must be "active"|"disabled"`)
	errNoPassword  = errors.New("password is required")
	errNoFullName  = errors.New("full name is required")
	errNoUserEmail = errors.New("email is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": emailKey(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMany loads the users in ids, in no particular order. Unknown ids are skipped.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing & validating fields and hashing password.
// An empty role defaults to "user".
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.EmailCI = emailKey(u.Email)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Role == "" {
		u.Role = string(rbac.RoleUser)
	}

	switch {
	case u.FullName == "":
		return models.User{}, errNoFullName
	case u.Email == "":
		return models.User{}, errNoUserEmail
	case password == "":
		return models.User{}, errNoPassword
	}
	role, ok := rbac.ParseRole(u.Role)
	if !ok {
		return models.User{}, errBadRole
	}
	u.Role = string(role)
	if u.Status != StatusActive && u.Status != StatusDisabled {
		return models.User{}, errBadStatus
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = string(hash)

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate returns the active user whose email and password match.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err == mongo.ErrNoDocuments {
		// Burn comparable time so unknown emails are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return u, ErrInvalidCredentials
	}
	if normalize.Status(u.Status) == StatusDisabled {
		return u, ErrDisabled
	}
	return u, nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("orghub-placeholder"), bcrypt.DefaultCost)
	})
	return dummy
}

// SetPassword replaces the user's password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	if password == "" {
		return errNoPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.set(ctx, id, bson.M{"password_hash": string(hash)})
}

// SetRole changes the user's global role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role rbac.Role) error {
	if !role.Valid() {
		return errBadRole
	}
	return s.set(ctx, id, bson.M{"role": string(role)})
}

// SetStatus enables or disables the account.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	status = normalize.Status(status)
	if status != StatusActive && status != StatusDisabled {
		return errBadStatus
	}
	return s.set(ctx, id, bson.M{"status": status})
}

// MarkEmailVerified records that the user proved ownership of their email.
func (s *Store) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{"email_verified": true})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func emailKey(email string) string {
	return text.Fold(normalize.Email(email))
}
