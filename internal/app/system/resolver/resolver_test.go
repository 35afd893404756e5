package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleKey struct{ org, user primitive.ObjectID }

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	globals  map[primitive.ObjectID]rbac.Role
	orgs     map[primitive.ObjectID]models.Organization
	orgRoles map[roleKey]rbac.Role
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		globals:  map[primitive.ObjectID]rbac.Role{},
		orgs:     map[primitive.ObjectID]models.Organization{},
		orgRoles: map[roleKey]rbac.Role{},
	}
}

func (d *fakeDirectory) GlobalRole(_ context.Context, userID primitive.ObjectID) (rbac.Role, error) {
	if d.err != nil {
		return "", d.err
	}
	r, ok := d.globals[userID]
	if !ok {
		return "", resolver.ErrNotFound
	}
	return r, nil
}

func (d *fakeDirectory) Organization(_ context.Context, orgID primitive.ObjectID) (models.Organization, error) {
	if d.err != nil {
		return models.Organization{}, d.err
	}
	o, ok := d.orgs[orgID]
	if !ok {
		return models.Organization{}, resolver.ErrNotFound
	}
	return o, nil
}

func (d *fakeDirectory) OrgRole(_ context.Context, orgID, userID primitive.ObjectID) (rbac.Role, bool, error) {
	if d.err != nil {
		return "", false, d.err
	}
	r, ok := d.orgRoles[roleKey{orgID, userID}]
	return r, ok, nil
}

func newResolver(dir resolver.Directory) *resolver.Resolver {
	return resolver.New(dir, rbac.NewDefaultPolicy(), zap.NewNop())
}

func TestResolve_NoOrg_UsesGlobalRole(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	dir.globals[u] = rbac.RoleAdmin

	res := newResolver(dir).Resolve(context.Background(), u, nil)
	if res.Role != rbac.RoleAdmin {
		t.Errorf("role: got %q, want %q", res.Role, rbac.RoleAdmin)
	}
	if res.Source != resolver.SourceGlobal {
		t.Errorf("source: got %q, want %q", res.Source, resolver.SourceGlobal)
	}
	if !res.Permissions.CanAccessPage(rbac.PageAdmin) {
		t.Error("expected admin page for admin role")
	}
}

func TestResolve_NoOrg_UserScenario(t *testing.T) {
	dir := newFakeDirectory()
	u2 := primitive.NewObjectID()
	dir.globals[u2] = rbac.RoleUser

	res := newResolver(dir).Resolve(context.Background(), u2, nil)
	if res.Permissions.CanAccessPage(rbac.PageAdmin) {
		t.Error("expected admin page to be denied")
	}
	if !res.Permissions.CanAccessPage(rbac.PageHome) {
		t.Error("expected home page to be allowed")
	}
}

func TestResolve_NoOrg_MissingPrincipalDegrades(t *testing.T) {
	dir := newFakeDirectory()
	res := newResolver(dir).Resolve(context.Background(), primitive.NewObjectID(), nil)
	if res.Role != rbac.RoleUser || !res.Degraded {
		t.Errorf("expected degraded user resolution, got role=%q degraded=%v", res.Role, res.Degraded)
	}
}

func TestResolve_OwnerPrecedence(t *testing.T) {
	dir := newFakeDirectory()
	u1 := primitive.NewObjectID()
	orgA := primitive.NewObjectID()
	dir.globals[u1] = rbac.RoleUser
	dir.orgs[orgA] = models.Organization{ID: orgA, OwnerID: u1, MemberIDs: []primitive.ObjectID{u1}}
	// Legacy data: stored entry says member.
	dir.orgRoles[roleKey{orgA, u1}] = rbac.RoleMember

	res := newResolver(dir).Resolve(context.Background(), u1, &orgA)
	if res.Role != rbac.RoleAccountOwner {
		t.Errorf("role: got %q, want %q", res.Role, rbac.RoleAccountOwner)
	}
	if res.Source != resolver.SourceOwner {
		t.Errorf("source: got %q, want %q", res.Source, resolver.SourceOwner)
	}
}

func TestResolve_ExplicitOrgRole(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()
	dir.orgs[org] = models.Organization{ID: org, OwnerID: primitive.NewObjectID(), MemberIDs: []primitive.ObjectID{u}}
	dir.orgRoles[roleKey{org, u}] = rbac.RoleSubAccountOwner

	res := newResolver(dir).Resolve(context.Background(), u, &org)
	if res.Role != rbac.RoleSubAccountOwner || res.Source != resolver.SourceOrgRole {
		t.Errorf("got role=%q source=%q", res.Role, res.Source)
	}
	if !res.Permissions.CanPerformAction(rbac.ActionInviteMembers) {
		t.Error("expected sub-account owner to invite members")
	}
}

func TestResolve_OrgRoleOverridesGlobal(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()
	dir.globals[u] = rbac.RoleAdmin
	dir.orgs[org] = models.Organization{ID: org, OwnerID: primitive.NewObjectID(), MemberIDs: []primitive.ObjectID{u}}
	dir.orgRoles[roleKey{org, u}] = rbac.RoleUser

	res := newResolver(dir).Resolve(context.Background(), u, &org)
	if res.Role != rbac.RoleUser {
		t.Errorf("expected org entry to override global admin, got %q", res.Role)
	}
}

func TestResolve_LegacySubAccount(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()
	dir.orgs[org] = models.Organization{ID: org, OwnerID: primitive.NewObjectID(), SubAccountIDs: []primitive.ObjectID{u}}

	res := newResolver(dir).Resolve(context.Background(), u, &org)
	if res.Role != rbac.RoleMember || res.Source != resolver.SourceSubAccount {
		t.Errorf("got role=%q source=%q", res.Role, res.Source)
	}
}

func TestResolve_MemberDefault(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()
	dir.orgs[org] = models.Organization{ID: org, OwnerID: primitive.NewObjectID(), MemberIDs: []primitive.ObjectID{u}}

	res := newResolver(dir).Resolve(context.Background(), u, &org)
	if res.Role != rbac.RoleMember || res.Source != resolver.SourceMemberDefault {
		t.Errorf("got role=%q source=%q", res.Role, res.Source)
	}
}

func TestResolve_DirectoryFailure_DefaultDeny(t *testing.T) {
	dir := newFakeDirectory()
	dir.err = errors.New("directory unreachable")
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()

	rv := newResolver(dir)
	for _, target := range []*primitive.ObjectID{nil, &org} {
		res := rv.Resolve(context.Background(), u, target)
		if res.Role != rbac.RoleUser {
			t.Errorf("role: got %q, want user", res.Role)
		}
		if !res.Degraded || res.Err == nil {
			t.Error("expected degraded resolution with error recorded")
		}
		for _, action := range []string{rbac.ActionChangeRoles, rbac.ActionRemoveMembers, rbac.ActionManageRolePermissions} {
			if res.Permissions.CanPerformAction(action) {
				t.Errorf("expected %q to be denied after failure", action)
			}
		}
		if res.Permissions.CanAccessPage(rbac.PageAdmin) {
			t.Error("expected admin page to be denied after failure")
		}
	}
}

func TestResolve_MalformedOrgRoleDegrades(t *testing.T) {
	dir := newFakeDirectory()
	u := primitive.NewObjectID()
	org := primitive.NewObjectID()
	dir.orgs[org] = models.Organization{ID: org, OwnerID: primitive.NewObjectID(), MemberIDs: []primitive.ObjectID{u}}
	dir.orgRoles[roleKey{org, u}] = rbac.Role("superuser")

	res := newResolver(dir).Resolve(context.Background(), u, &org)
	if res.Role != rbac.RoleUser || !res.Degraded {
		t.Errorf("expected degraded user resolution, got role=%q degraded=%v", res.Role, res.Degraded)
	}
}

func TestResolve_NilDirectory(t *testing.T) {
	res := newResolver(nil).Resolve(context.Background(), primitive.NewObjectID(), nil)
	if res.Role != rbac.RoleUser || !res.Degraded {
		t.Errorf("expected degraded user resolution, got role=%q", res.Role)
	}
}
