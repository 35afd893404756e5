// internal/app/system/rbac/roles.go
package rbac

import "strings"

// Role is one of the closed set of roles a principal can hold.
type Role string

const (
	RoleUser            Role = "user"
	RoleAdmin           Role = "admin"
	RoleAccountOwner    Role = "account_owner"
	RoleSubAccountOwner Role = "sub_account_owner"
)

// RoleMember is how organization members without an explicit role are reported.
// It is the same role as RoleUser.
const RoleMember = RoleUser

// AllRoles lists every role in a stable order.
var AllRoles = []Role{RoleUser, RoleAdmin, RoleAccountOwner, RoleSubAccountOwner}

// ParseRole normalizes s and reports whether it names a known role.
// "member" is accepted as an alias of "user".
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "member":
		return RoleUser, true
	case "admin":
		return RoleAdmin, true
	case "account_owner":
		return RoleAccountOwner, true
	case "sub_account_owner":
		return RoleSubAccountOwner, true
	}
	return "", false
}

// Valid reports whether r is part of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleAccountOwner, RoleSubAccountOwner:
		return true
	}
	return false
}

// ParseRoleOrUser is ParseRole with the least-privilege fallback applied.
func ParseRoleOrUser(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleUser
}

func (r Role) String() string { return string(r) }

// rank orders roles by how much they can delegate.
func (r Role) rank() int {
	switch r {
	case RoleSubAccountOwner:
		return 1
	case RoleAccountOwner:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// OrgAssignable reports whether r may be stored as a per-organization role.
// admin is a global role only.
func (r Role) OrgAssignable() bool {
	return r.Valid() && r != RoleAdmin
}

// CanGrant reports whether a principal acting as actor may hand out target
// inside an organization: target must be org-assignable and not above actor.
func CanGrant(actor, target Role) bool {
	return actor.Valid() && target.OrgAssignable() && target.rank() <= actor.rank()
}
