package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/orghub/internal/app/store/directory"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*directory.Directory, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return directory.New(db), testutil.NewFixtures(t, db), ctx
}

func TestGlobalRole(t *testing.T) {
	dir, fx, ctx := setup(t)

	admin := fx.CreateUser(ctx, "Admin", "admin@example.com", "admin")
	member := fx.CreateUser(ctx, "Legacy", "legacy@example.com", "member")
	bogus := fx.CreateUser(ctx, "Bogus", "bogus@example.com", "superuser")

	if r, err := dir.GlobalRole(ctx, admin.ID); err != nil || r != rbac.RoleAdmin {
		t.Errorf("admin: got %q %v", r, err)
	}
	if r, err := dir.GlobalRole(ctx, member.ID); err != nil || r != rbac.RoleUser {
		t.Errorf("member alias: got %q %v", r, err)
	}
	if _, err := dir.GlobalRole(ctx, bogus.ID); !errors.Is(err, directory.ErrMalformed) {
		t.Errorf("bogus role: got %v", err)
	}
	if _, err := dir.GlobalRole(ctx, primitive.NewObjectID()); !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestOrgRoleAndOrganization(t *testing.T) {
	dir, fx, ctx := setup(t)

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "user")
	u := fx.CreateUser(ctx, "U", "u@example.com", "user")
	org := fx.CreateOrganization(ctx, "Acme", owner.ID, u.ID)

	if _, found, err := dir.OrgRole(ctx, org.ID, u.ID); err != nil || found {
		t.Errorf("no entry: found=%v err=%v", found, err)
	}
	fx.SetOrgRole(ctx, org.ID, u.ID, "sub_account_owner")
	if r, found, err := dir.OrgRole(ctx, org.ID, u.ID); err != nil || !found || r != rbac.RoleSubAccountOwner {
		t.Errorf("entry: %q found=%v err=%v", r, found, err)
	}

	got, err := dir.Organization(ctx, org.ID)
	if err != nil || got.Name != "Acme" {
		t.Errorf("Organization: %+v %v", got, err)
	}
	if _, err := dir.Organization(ctx, primitive.NewObjectID()); !errors.Is(err, resolver.ErrNotFound) {
		t.Errorf("unknown org: got %v", err)
	}
}

func TestOrgRole_Malformed(t *testing.T) {
	dir, fx, ctx := setup(t)
	org := primitive.NewObjectID()
	u := primitive.NewObjectID()
	fx.SetOrgRole(ctx, org, u, "emperor")

	if _, _, err := dir.OrgRole(ctx, org, u); !errors.Is(err, directory.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestOrganizationsFor_SkipsMalformed(t *testing.T) {
	dir, fx, ctx := setup(t)
	u := fx.CreateUser(ctx, "U", "u@example.com", "user")
	good := fx.CreateOrganization(ctx, "Good", primitive.NewObjectID(), u.ID)

	_, err := fx.DB().Collection("organizations").InsertOne(ctx, bson.M{
		"_id":        primitive.NewObjectID(),
		"name":       "",
		"name_ci":    "",
		"member_ids": bson.A{u.ID},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	orgs, err := dir.OrganizationsFor(ctx, u.ID)
	if err != nil {
		t.Fatalf("OrganizationsFor: %v", err)
	}
	if len(orgs) != 1 || orgs[0].ID != good.ID {
		t.Errorf("expected only the valid org, got %d", len(orgs))
	}
}

// End to end through the resolver with the Mongo-backed directory.
func TestResolver_OwnerBeatsStoredEntry(t *testing.T) {
	dir, fx, ctx := setup(t)
	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", "user")
	org := fx.CreateOrganization(ctx, "Acme", owner.ID)
	fx.SetOrgRole(ctx, org.ID, owner.ID, "user")

	rv := resolver.New(dir, rbac.NewDefaultPolicy(), zap.NewNop())
	res := rv.Resolve(ctx, owner.ID, &org.ID)
	if res.Role != rbac.RoleAccountOwner || res.Source != resolver.SourceOwner {
		t.Errorf("got %q via %q", res.Role, res.Source)
	}
}
