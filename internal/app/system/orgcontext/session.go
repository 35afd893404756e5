// internal/app/system/orgcontext/session.go
package orgcontext

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// State is the lifecycle of a session's organization context.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateNoOrganizations
	StateHasActiveOrganization
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateNoOrganizations:
		return "no_organizations"
	case StateHasActiveOrganization:
		return "has_active_organization"
	}
	return "unknown"
}

var (
	// ErrNotMember is returned by Switch for an organization outside the loaded list.
	ErrNotMember = errors.New("organization is not in the membership list")
	// ErrNotLoaded is returned by Switch before the membership list has resolved.
	ErrNotLoaded = errors.New("membership list has not been loaded")
)

// MembershipLoader lists the organizations a principal belongs to, in display order.
type MembershipLoader interface {
	OrganizationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Organization, error)
}

// Change reasons.
const (
	ReasonLoad       = "load"
	ReasonSwitch     = "switch"
	ReasonRefresh    = "refresh"
	ReasonInvalidate = "invalidate"
	ReasonRoleTable  = "role_table"
)

// Change is published to subscribers after a transition commits.
type Change struct {
	UserID   primitive.ObjectID
	Reason   string
	State    State
	Previous *primitive.ObjectID
	Active   *primitive.ObjectID
	Role     rbac.Role
}

// Session holds one signed-in session's active organization and its cached
// resolution. It is safe for concurrent use.
//
// Every transition moves the active pointer and bumps gen under the lock,
// resolves without the lock, then commits only if gen is unchanged. A
// resolution that lost the race to a newer transition is dropped.
type Session struct {
	id       string
	userID   primitive.ObjectID
	loader   MembershipLoader
	resolver *resolver.Resolver
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	orgs     []models.Organization
	active   *primitive.ObjectID
	res      resolver.Resolution
	resolved bool
	gen      uint64
	// refreshSeq orders membership reloads; a Refresh whose list was read
	// before a newer Refresh or Load started is discarded.
	refreshSeq uint64
	lastUsed   time.Time

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// NewSession constructs an Uninitialized session.
func NewSession(id string, userID primitive.ObjectID, loader MembershipLoader, rv *resolver.Resolver, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:       id,
		userID:   userID,
		loader:   loader,
		resolver: rv,
		log:      logger,
		lastUsed: time.Now(),
		subs:     make(map[int]func(Change)),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the principal this session belongs to.
func (s *Session) UserID() primitive.ObjectID { return s.userID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureLoaded runs Load only when the session is still Uninitialized.
func (s *Session) EnsureLoaded(ctx context.Context, hint *primitive.ObjectID) {
	s.mu.Lock()
	uninit := s.state == StateUninitialized
	s.mu.Unlock()
	if uninit {
		s.Load(ctx, hint)
	}
}

// Load fetches the membership list and activates hint if it is still a
// membership, otherwise the first organization. With no memberships the
// session resolves against the global role.
func (s *Session) Load(ctx context.Context, hint *primitive.ObjectID) {
	s.mu.Lock()
	s.state = StateLoading
	s.resolved = false
	s.gen++
	s.refreshSeq++
	loadGen := s.gen
	s.mu.Unlock()

	orgs, err := s.loadOrgs(ctx)

	s.mu.Lock()
	if s.gen != loadGen {
		s.mu.Unlock()
		return
	}
	prev := s.active
	s.orgs = orgs
	s.active = pickActive(orgs, hint)
	s.setStateLocked()
	s.gen++
	gen := s.gen
	target := copyID(s.active)
	s.mu.Unlock()

	s.resolveAndCommit(ctx, gen, target, prev, ReasonLoad, err)
}

// Switch makes orgID the active organization. It is rejected, leaving the
// active organization unchanged, unless orgID is in the loaded list.
func (s *Session) Switch(ctx context.Context, orgID primitive.ObjectID) error {
	s.mu.Lock()
	if s.state == StateUninitialized || s.state == StateLoading {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if !containsOrg(s.orgs, orgID) {
		s.mu.Unlock()
		return ErrNotMember
	}
	prev := s.active
	s.active = &orgID
	s.resolved = false
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.resolveAndCommit(ctx, gen, copyID(&orgID), prev, ReasonSwitch, nil)
	return nil
}

// Refresh reloads the membership list. If the active organization is gone the
// session falls back to the next available membership, or to NoOrganizations.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateUninitialized {
		s.mu.Unlock()
		s.Load(ctx, nil)
		return
	}
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	orgs, err := s.loadOrgs(ctx)
	if err != nil {
		// Keep the last good list; the resolver still degrades on its own failures.
		return
	}

	s.mu.Lock()
	if s.state == StateLoading || s.refreshSeq != seq {
		s.mu.Unlock()
		return
	}
	prev := s.active
	s.orgs = orgs
	if s.active == nil || !containsOrg(orgs, *s.active) {
		s.active = pickActive(orgs, nil)
	}
	s.setStateLocked()
	s.resolved = false
	s.gen++
	gen := s.gen
	target := copyID(s.active)
	s.mu.Unlock()

	s.resolveAndCommit(ctx, gen, target, prev, ReasonRefresh, nil)
}

// Invalidate re-resolves the current target. Used when the principal's global
// role or the active organization's role entries change.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateUninitialized || s.state == StateLoading {
		s.mu.Unlock()
		return
	}
	prev := s.active
	s.resolved = false
	s.gen++
	gen := s.gen
	target := copyID(s.active)
	s.mu.Unlock()

	s.resolveAndCommit(ctx, gen, target, prev, ReasonInvalidate, nil)
}

// ApplyRoleChange refreshes the cached permission set when this session is
// resolved to the changed role. The set is read from the policy, not from c,
// since changes can be delivered out of order.
func (s *Session) ApplyRoleChange(c rbac.RoleChange) {
	s.mu.Lock()
	if !s.resolved || s.res.Role != c.Role {
		s.mu.Unlock()
		return
	}
	s.res.Permissions = s.resolver.Policy().PermissionsForRole(c.Role)
	change := Change{
		UserID:   s.userID,
		Reason:   ReasonRoleTable,
		State:    s.state,
		Previous: copyID(s.active),
		Active:   copyID(s.active),
		Role:     s.res.Role,
	}
	s.mu.Unlock()

	s.publish(change)
}

// ActiveOrgID returns the active organization, or nil.
func (s *Session) ActiveOrgID() *primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyID(s.active)
}

// Organizations returns a copy of the loaded membership list.
func (s *Session) Organizations() []models.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Organization, len(s.orgs))
	copy(out, s.orgs)
	return out
}

// HasOrganization reports whether orgID is in the loaded membership list.
func (s *Session) HasOrganization(orgID primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsOrg(s.orgs, orgID)
}

// Subscribe registers fn for every committed Change and returns a func that removes it.
func (s *Session) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// LastUsed returns when View was last called.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) loadOrgs(ctx context.Context) ([]models.Organization, error) {
	if s.loader == nil {
		return nil, errors.New("membership loader not configured")
	}
	orgs, err := s.loader.OrganizationsFor(ctx, s.userID)
	if err != nil {
		s.log.Warn("membership load failed",
			zap.String("user_id", s.userID.Hex()),
			zap.Error(err))
		return nil, err
	}
	return orgs, nil
}

func (s *Session) resolveAndCommit(ctx context.Context, gen uint64, target, prev *primitive.ObjectID, reason string, loadErr error) {
	var res resolver.Resolution
	if loadErr != nil {
		res = s.resolver.Fallback(s.userID, target, loadErr)
	} else {
		res = s.resolver.Resolve(ctx, s.userID, target)
	}

	s.mu.Lock()
	if s.gen != gen {
		// Superseded by a newer transition.
		s.mu.Unlock()
		return
	}
	// Re-read the table so an update that landed mid-resolution is not lost.
	res.Permissions = s.resolver.Policy().PermissionsForRole(res.Role)
	s.res = res
	s.resolved = true
	change := Change{
		UserID:   s.userID,
		Reason:   reason,
		State:    s.state,
		Previous: copyID(prev),
		Active:   copyID(s.active),
		Role:     res.Role,
	}
	s.mu.Unlock()

	s.publish(change)
}

func (s *Session) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Session) setStateLocked() {
	if s.active != nil {
		s.state = StateHasActiveOrganization
	} else {
		s.state = StateNoOrganizations
	}
}

func pickActive(orgs []models.Organization, hint *primitive.ObjectID) *primitive.ObjectID {
	if hint != nil && containsOrg(orgs, *hint) {
		return copyID(hint)
	}
	if len(orgs) == 0 {
		return nil
	}
	id := orgs[0].ID
	return &id
}

func containsOrg(orgs []models.Organization, id primitive.ObjectID) bool {
	for _, o := range orgs {
		if o.ID == id {
			return true
		}
	}
	return false
}

func copyID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
