// internal/app/system/orgcontext/registry.go
package orgcontext

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Registry holds the live sessions of this process, keyed by session id.
// It fans role-table changes and directory signals out to the affected sessions.
type Registry struct {
	loader   MembershipLoader
	resolver *resolver.Resolver
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	unsubscribe func()
}

// NewRegistry constructs a Registry subscribed to the resolver's role table.
func NewRegistry(loader MembershipLoader, rv *resolver.Resolver, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		loader:   loader,
		resolver: rv,
		log:      logger,
		sessions: make(map[string]*Session),
	}
	r.unsubscribe = rv.Policy().Subscribe(r.applyRoleChange)
	return r
}

// Close detaches the registry from the role table.
func (r *Registry) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// Get returns the session for sessionID, creating it if needed. A session id
// reused by a different principal gets a fresh session.
func (r *Registry) Get(sessionID string, userID primitive.ObjectID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok && s.UserID() == userID {
		return s
	}
	s := NewSession(sessionID, userID, r.loader, r.resolver, r.log)
	r.sessions[sessionID] = s
	return s
}

// Remove drops a session (sign-out).
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// InvalidateUser re-resolves every session of userID (global role changed).
func (r *Registry) InvalidateUser(ctx context.Context, userID primitive.ObjectID) {
	for _, s := range r.matching(func(s *Session) bool { return s.UserID() == userID }) {
		s.Invalidate(ctx)
	}
}

// RefreshUser reloads the membership list of every session of userID.
func (r *Registry) RefreshUser(ctx context.Context, userID primitive.ObjectID) {
	for _, s := range r.matching(func(s *Session) bool { return s.UserID() == userID }) {
		s.Refresh(ctx)
	}
}

// InvalidateOrg re-resolves every session whose active organization is orgID.
// The directory watch calls it when one of that organization's role entries changes.
func (r *Registry) InvalidateOrg(ctx context.Context, orgID primitive.ObjectID) {
	for _, s := range r.matching(func(s *Session) bool {
		a := s.ActiveOrgID()
		return a != nil && *a == orgID
	}) {
		s.Invalidate(ctx)
	}
}

// RefreshOrg reloads membership lists of sessions that know orgID, either as
// a loaded membership or as the active organization.
func (r *Registry) RefreshOrg(ctx context.Context, orgID primitive.ObjectID) {
	for _, s := range r.matching(func(s *Session) bool { return s.HasOrganization(orgID) }) {
		s.Refresh(ctx)
	}
}

// RefreshAll reloads every session. Used when a change cannot be attributed.
func (r *Registry) RefreshAll(ctx context.Context) {
	for _, s := range r.matching(func(*Session) bool { return true }) {
		s.Refresh(ctx)
	}
}

// Sweep removes sessions idle for longer than idle and returns how many went.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.LastUsed().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) matching(pred func(*Session) bool) []*Session {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	out := all[:0]
	for _, s := range all {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) applyRoleChange(c rbac.RoleChange) {
	for _, s := range r.matching(func(*Session) bool { return true }) {
		s.ApplyRoleChange(c)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request plumbing                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const sessionKey ctxKey = "orgSession"

// Middleware attaches the signed-in principal's Session to the request,
// loading it on first use with the cookie's active-organization hint.
// Anonymous requests pass through untouched.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		u, ok := auth.CurrentUser(req)
		if !ok {
			next.ServeHTTP(w, req)
			return
		}
		userID, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			// Malformed principal id: fail closed by attaching nothing.
			next.ServeHTTP(w, req)
			return
		}
		sid := u.SessionID
		if sid == "" {
			sid = "user:" + u.ID
		}

		s := r.Get(sid, userID)
		if s.State() == StateUninitialized {
			ctx, cancel := context.WithTimeout(req.Context(), timeouts.Medium())
			s.EnsureLoaded(ctx, parseHint(u.ActiveOrgHint))
			cancel()
		}
		next.ServeHTTP(w, WithSession(req, s))
	})
}

// WithSession attaches s to the request context.
func WithSession(r *http.Request, s *Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionKey, s))
}

// FromContext returns the Session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// FromRequest is FromContext on r's context.
func FromRequest(r *http.Request) (*Session, bool) {
	return FromContext(r.Context())
}

func parseHint(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}
