package rbac_test

import (
	"sync"
	"testing"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
)

func TestPermissionsForRole_TotalAndDeterministic(t *testing.T) {
	p := rbac.NewDefaultPolicy()

	for _, role := range rbac.AllRoles {
		first := p.PermissionsForRole(role)
		second := p.PermissionsForRole(role)
		if first.Pages == nil || first.Actions == nil {
			t.Errorf("role %q: expected non-nil maps", role)
		}
		if !first.Equal(second) {
			t.Errorf("role %q: lookups differ", role)
		}
	}
}

func TestPermissionsForRole_UnknownFallsBackToUser(t *testing.T) {
	p := rbac.NewDefaultPolicy()
	user := p.PermissionsForRole(rbac.RoleUser)

	for _, role := range []rbac.Role{"", "superuser", "ADMIN "} {
		got := p.PermissionsForRole(role)
		if !got.Equal(user) {
			t.Errorf("role %q: expected user permission set", role)
		}
		if got.CanAccessPage(rbac.PageAdmin) {
			t.Errorf("role %q: unknown role must not reach admin page", role)
		}
	}
}

func TestPermissionsForRole_ReturnsCopy(t *testing.T) {
	p := rbac.NewDefaultPolicy()

	set := p.PermissionsForRole(rbac.RoleUser)
	set.Pages[rbac.PageAdmin] = true

	if p.PermissionsForRole(rbac.RoleUser).CanAccessPage(rbac.PageAdmin) {
		t.Error("mutating a returned set must not change the table")
	}
}

func TestDefaultTable_UserPages(t *testing.T) {
	p := rbac.NewDefaultPolicy()
	user := p.PermissionsForRole(rbac.RoleUser)

	if !user.CanAccessPage(rbac.PageHome) {
		t.Error("expected user to access home")
	}
	if user.CanAccessPage(rbac.PageAdmin) {
		t.Error("expected user to be denied admin")
	}
	if user.CanPerformAction(rbac.ActionChangeRoles) {
		t.Error("expected user to be denied change_roles")
	}
}

func TestUpdateRolePermissions_ReplacesWholeSet(t *testing.T) {
	p := rbac.NewDefaultPolicy()

	newSet := rbac.PermissionSet{
		Pages:   map[string]bool{rbac.PageBilling: true},
		Actions: map[string]bool{},
	}
	if err := p.UpdateRolePermissions(rbac.RoleSubAccountOwner, newSet); err != nil {
		t.Fatalf("UpdateRolePermissions failed: %v", err)
	}

	got := p.PermissionsForRole(rbac.RoleSubAccountOwner)
	if !got.Equal(newSet) {
		t.Errorf("expected the stored set to equal the update, got %+v", got)
	}
	if got.CanAccessPage(rbac.PageHome) {
		t.Error("expected old pages to be dropped, not merged")
	}
	if p.Version() != 1 {
		t.Errorf("version: got %d, want 1", p.Version())
	}
}

func TestUpdateRolePermissions_UnknownRole(t *testing.T) {
	p := rbac.NewDefaultPolicy()
	err := p.UpdateRolePermissions("owner", rbac.PermissionSet{})
	if err != rbac.ErrUnknownRole {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestUpdateRolePermissions_NotifiesSubscribers(t *testing.T) {
	p := rbac.NewDefaultPolicy()

	var got []rbac.RoleChange
	unsubscribe := p.Subscribe(func(c rbac.RoleChange) {
		got = append(got, c)
	})

	set := rbac.PermissionSet{Pages: map[string]bool{rbac.PageAdmin: true}}
	if err := p.UpdateRolePermissions(rbac.RoleUser, set); err != nil {
		t.Fatalf("UpdateRolePermissions failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Role != rbac.RoleUser || !got[0].Permissions.CanAccessPage(rbac.PageAdmin) {
		t.Errorf("unexpected change payload: %+v", got[0])
	}

	unsubscribe()
	_ = p.UpdateRolePermissions(rbac.RoleUser, rbac.PermissionSet{})
	if len(got) != 1 {
		t.Errorf("expected no notification after unsubscribe, got %d", len(got))
	}
}

func TestUpdateRolePermissions_ConcurrentLastWriteWins(t *testing.T) {
	p := rbac.NewDefaultPolicy()
	a := rbac.PermissionSet{Pages: map[string]bool{rbac.PageHome: true}}
	b := rbac.PermissionSet{Pages: map[string]bool{rbac.PageBilling: true}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = p.UpdateRolePermissions(rbac.RoleAdmin, a) }()
		go func() { defer wg.Done(); _ = p.UpdateRolePermissions(rbac.RoleAdmin, b) }()
	}
	wg.Wait()

	got := p.PermissionsForRole(rbac.RoleAdmin)
	if !got.Equal(a) && !got.Equal(b) {
		t.Errorf("expected one whole set to win, got merged %+v", got)
	}
}

func TestNewPolicy_MissingRolesDenyAll(t *testing.T) {
	p := rbac.NewPolicy(map[rbac.Role]rbac.PermissionSet{})
	got := p.PermissionsForRole(rbac.RoleAdmin)
	if got.CanAccessPage(rbac.PageHome) || got.CanPerformAction(rbac.ActionChangeRoles) {
		t.Error("expected a role missing from the table to deny everything")
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want rbac.Role
		ok   bool
	}{
		{"user", rbac.RoleUser, true},
		{"Member", rbac.RoleUser, true},
		{" admin ", rbac.RoleAdmin, true},
		{"account_owner", rbac.RoleAccountOwner, true},
		{"SUB_ACCOUNT_OWNER", rbac.RoleSubAccountOwner, true},
		{"leader", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := rbac.ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if rbac.ParseRoleOrUser("nope") != rbac.RoleUser {
		t.Error("expected ParseRoleOrUser to fall back to user")
	}
}

func TestCanGrant(t *testing.T) {
	tests := []struct {
		actor, target rbac.Role
		want          bool
	}{
		{rbac.RoleAccountOwner, rbac.RoleUser, true},
		{rbac.RoleAccountOwner, rbac.RoleSubAccountOwner, true},
		{rbac.RoleAccountOwner, rbac.RoleAccountOwner, true},
		{rbac.RoleSubAccountOwner, rbac.RoleAccountOwner, false},
		{rbac.RoleSubAccountOwner, rbac.RoleUser, true},
		{rbac.RoleUser, rbac.RoleSubAccountOwner, false},
		{rbac.RoleAdmin, rbac.RoleAdmin, false},
		{rbac.RoleAdmin, rbac.RoleAccountOwner, true},
		{rbac.Role("root"), rbac.RoleUser, false},
	}
	for _, tc := range tests {
		if got := rbac.CanGrant(tc.actor, tc.target); got != tc.want {
			t.Errorf("CanGrant(%s, %s) = %v, want %v", tc.actor, tc.target, got, tc.want)
		}
	}
}
