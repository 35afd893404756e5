// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey     = "is_authenticated"
	sessionIDKey  = "session_id"
	userIDKey     = "user_id"
	activeOrgKey  = "active_org_id"
	signedInAtKey = "signed_in_at"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we inject into r.Context() for a signed-in principal.
// Name, Email and Role are fetched fresh on every request so role changes
// take effect without signing out.
type SessionUser struct {
	SessionID string
	ID        string
	Name      string
	Email     string
	Role      string // global role
	Verified  bool

	// ActiveOrgHint is the organization the browser last had active.
	// It is only a hint: it must be re-validated against current membership.
	ActiveOrgHint string
}

// UserFetcher loads the current principal record. It returns nil when the
// user no longer exists or is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Tests use it to bypass cookies.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the request middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "orghub-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the fetcher used by LoadSessionUser.
func (m *SessionManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// GetSession returns the named session. On a decode error the returned
// session is a fresh one and the error is still reported.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, m.name)
}

// LoadSessionUser injects the user into context if they are signed in and
// the fetcher still finds them active.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.GetSession(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
			next.ServeHTTP(w, r)
			return
		}

		userID := getString(sess, userIDKey)
		var u *SessionUser
		if m.fetcher != nil {
			u = m.fetcher.FetchUser(r.Context(), userID)
		} else {
			u = &SessionUser{ID: userID}
		}
		if u == nil {
			// Deleted or disabled since sign-in.
			next.ServeHTTP(w, r)
			return
		}
		u.SessionID = getString(sess, sessionIDKey)
		u.ActiveOrgHint = getString(sess, activeOrgKey)

		next.ServeHTTP(w, withUser(r, u))
	})
}

// SignIn starts an authenticated session for userID and returns its id.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID string) (string, error) {
	sess, err := m.GetSession(r)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			m.log.Error("session store error during sign-in, using fresh session", zap.Error(err))
		}
	}

	// Never carry a previous principal's active organization across sign-ins.
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sid := uuid.NewString()
	sess.Values[isAuthKey] = true
	sess.Values[sessionIDKey] = sid
	sess.Values[userIDKey] = userID
	sess.Values[signedInAtKey] = time.Now().UTC().Unix()

	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return sid, nil
}

// SignOut clears the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.GetSession(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SetActiveOrgHint persists the active organization so a reload can restore it.
func (m *SessionManager) SetActiveOrgHint(w http.ResponseWriter, r *http.Request, orgID string) error {
	sess, err := m.GetSession(r)
	if err != nil {
		return err
	}
	if orgID == "" {
		delete(sess.Values, activeOrgKey)
	} else {
		sess.Values[activeOrgKey] = orgID
	}
	return sess.Save(r, w)
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a JSON error body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		Unauthorized(w, r)
	})
}

// Unauthorized writes the not-signed-in response for r.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		ret := url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
