package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it repeatedly on the same request adds further parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test documents directly, bypassing store validation.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user with the given global role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		EmailCI:    text.Fold(email),
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateOrganization inserts an organization owned by owner with the given
// extra members. The owner is always listed in member_ids.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, owner primitive.ObjectID, members ...primitive.ObjectID) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   owner,
		MemberIDs: append([]primitive.ObjectID{owner}, members...),
		Status:    "active",
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// SetOrgRole writes an explicit role entry for (orgID, userID).
func (f *Fixtures) SetOrgRole(ctx context.Context, orgID, userID primitive.ObjectID, role string) models.OrgRole {
	f.t.Helper()
	now := time.Now().UTC()
	e := models.OrgRole{
		ID:        primitive.NewObjectID(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("org_roles").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test org role: %v", err)
	}
	return e
}

// CreateInvitation inserts an active single-use invitation expiring after ttl.
func (f *Fixtures) CreateInvitation(ctx context.Context, orgID, createdBy primitive.ObjectID, email, role string, ttl time.Duration) models.Invitation {
	f.t.Helper()
	now := time.Now().UTC()
	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		Token:     uuid.NewString(),
		OrgID:     orgID,
		Email:     email,
		EmailCI:   text.Fold(email),
		Role:      role,
		Status:    models.InvitationActive,
		MaxUses:   1,
		ExpiresAt: now.Add(ttl),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}
