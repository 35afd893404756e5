package login_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/login"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/ratelimit"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*login.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	reg, _ := testutil.NewRegistry(t, db)
	// nil audit logger: auditing is a no-op in tests
	return login.NewHandler(db, sm, reg, limiter, nil, uierrors.NewErrorLogger(logger), logger), db
}

func createUser(t *testing.T, db *mongo.Database, email, password string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(db).Create(ctx, models.User{FullName: "Login User", Email: email}, password)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestHandleLogin_Success(t *testing.T) {
	h, db := newTestHandler(t, nil)
	u := createUser(t, db, "login@example.com", "correct horse")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := testutil.NewFixtures(t, db).CreateOrganization(ctx, "Acme", u.ID)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "Login@Example.com",
		"password": "correct horse",
	}))
	rec.AssertStatus(t, http.StatusOK)

	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}
	var me sessionvm.MeVM
	rec.DecodeJSON(t, &me)
	if me.User.ID != u.ID.Hex() {
		t.Errorf("user id: got %q", me.User.ID)
	}
	if me.Context.State != "has_active_organization" || me.Context.ActiveOrganizationID != org.ID.Hex() {
		t.Errorf("context: %+v", me.Context)
	}
	if me.Context.Role != "account_owner" {
		t.Errorf("role: got %q, want account_owner", me.Context.Role)
	}
}

func TestHandleLogin_NoOrganizations(t *testing.T) {
	h, db := newTestHandler(t, nil)
	createUser(t, db, "solo@example.com", "pw-solo-123")

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email": "solo@example.com", "password": "pw-solo-123",
	}))
	rec.AssertStatus(t, http.StatusOK)

	var me sessionvm.MeVM
	rec.DecodeJSON(t, &me)
	if me.Context.State != "no_organizations" || me.Context.Role != "user" {
		t.Errorf("context: %+v", me.Context)
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	h, db := newTestHandler(t, nil)
	createUser(t, db, "bad@example.com", "right-password")

	tests := []struct {
		name  string
		email string
		pw    string
	}{
		{"wrong password", "bad@example.com", "wrong-password"},
		{"unknown email", "nobody@example.com", "right-password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
				"email": tc.email, "password": tc.pw,
			}))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, "invalid_credentials")
		})
	}
}

func TestHandleLogin_Disabled(t *testing.T) {
	h, db := newTestHandler(t, nil)
	u := createUser(t, db, "off@example.com", "pw-disabled")
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := userstore.New(db).SetStatus(ctx, u.ID, userstore.StatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email": "off@example.com", "password": "pw-disabled",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "account_disabled")
}

func TestHandleLogin_Validation(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email": "not-an-email",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)

	var body uierrors.ErrorBody
	rec.DecodeJSON(t, &body)
	if body.Fields["email"] == "" || body.Fields["password"] == "" {
		t.Errorf("expected email and password field errors, got %v", body.Fields)
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiter(100, 2)
	t.Cleanup(limiter.Stop)
	h, db := newTestHandler(t, limiter)
	createUser(t, db, "rl@example.com", "right-password")

	for i := 0; i < 2; i++ {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
			"email": "rl@example.com", "password": "wrong",
		}))
		rec.AssertStatus(t, http.StatusBadRequest)
	}

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email": "rl@example.com", "password": "right-password",
	}))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}
