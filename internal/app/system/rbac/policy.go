// internal/app/system/rbac/policy.go
package rbac

import (
	"errors"
	"sync"
)

// ErrUnknownRole is returned when a table update names a role outside AllRoles.
var ErrUnknownRole = errors.New("unknown role")

// RoleChange is published to subscribers after a role's set is replaced.
type RoleChange struct {
	Role        Role
	Permissions PermissionSet
	Version     uint64
}

// Policy is the role table. It is safe for concurrent use and is meant to be
// constructed once and injected; tests build their own.
//
// Every role always maps to exactly one full PermissionSet. Updates replace
// the whole set, so two concurrent updates to one role are last-write-wins.
type Policy struct {
	mu      sync.RWMutex
	table   map[Role]PermissionSet
	version uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(RoleChange)
}

// NewPolicy builds a policy from table. Roles missing from table get an empty
// (deny-all) set so lookups stay total.
func NewPolicy(table map[Role]PermissionSet) *Policy {
	p := &Policy{
		table: make(map[Role]PermissionSet, len(AllRoles)),
		subs:  make(map[int]func(RoleChange)),
	}
	for _, r := range AllRoles {
		set, ok := table[r]
		if !ok {
			set = PermissionSet{}
		}
		p.table[r] = set.Clone()
	}
	return p
}

// NewDefaultPolicy is NewPolicy(DefaultTable()).
func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultTable())
}

// PermissionsForRole returns a copy of role's set. Unknown or empty roles get
// the user set.
func (p *Policy) PermissionsForRole(role Role) PermissionSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.table[role]
	if !ok {
		set = p.table[RoleUser]
	}
	return set.Clone()
}

// UpdateRolePermissions replaces role's set and notifies subscribers before
// returning, so sessions resolved to role see the new set immediately.
func (p *Policy) UpdateRolePermissions(role Role, set PermissionSet) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	stored := set.Clone()

	p.mu.Lock()
	p.table[role] = stored
	p.version++
	change := RoleChange{Role: role, Permissions: stored.Clone(), Version: p.version}
	p.mu.Unlock()

	p.publish(change)
	return nil
}

// Version increments on every update.
func (p *Policy) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Snapshot returns a copy of the whole table.
func (p *Policy) Snapshot() map[Role]PermissionSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Role]PermissionSet, len(p.table))
	for r, set := range p.table {
		out[r] = set.Clone()
	}
	return out
}

// Subscribe registers fn for every RoleChange and returns a func that removes it.
// fn runs on the updating goroutine and must not call UpdateRolePermissions.
func (p *Policy) Subscribe(fn func(RoleChange)) func() {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Policy) publish(change RoleChange) {
	p.subMu.Lock()
	fns := make([]func(RoleChange), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
