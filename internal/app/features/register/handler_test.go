package register_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/register"
	"github.com/dalemusser/orghub/internal/app/features/shared/sessionvm"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/indexes"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *register.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	reg, _ := testutil.NewRegistry(t, db)
	return register.NewHandler(db, sm, reg, nil, uierrors.NewErrorLogger(logger), logger)
}

func TestHandleRegister_Success(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", map[string]string{
		"name":     "  New   Person ",
		"email":    "New@Example.com",
		"password": "long-enough",
	}))
	rec.AssertStatus(t, http.StatusOK)

	var me sessionvm.MeVM
	rec.DecodeJSON(t, &me)
	if me.User.Email != "new@example.com" || me.User.Role != "user" {
		t.Errorf("user: %+v", me.User)
	}
	if me.Context.State != "no_organizations" {
		t.Errorf("state: got %q", me.Context.State)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}
}

func TestHandleRegister_RoleInBodyRejected(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", map[string]string{
		"name": "Sneaky", "email": "sneaky@example.com", "password": "long-enough", "role": "admin",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h := newTestHandler(t)
	body := map[string]string{"name": "Dup", "email": "dup@example.com", "password": "long-enough"}

	first := testutil.NewRecorder()
	h.HandleRegister(first, testutil.JSONRequest(t, "POST", "/api/auth/register", body))
	first.AssertStatus(t, http.StatusOK)

	second := testutil.NewRecorder()
	h.HandleRegister(second, testutil.JSONRequest(t, "POST", "/api/auth/register", body))
	second.AssertStatus(t, http.StatusBadRequest)

	var errBody uierrors.ErrorBody
	second.DecodeJSON(t, &errBody)
	if errBody.Fields["email"] == "" {
		t.Errorf("expected an email field error, got %+v", errBody)
	}
}

func TestHandleRegister_ShortPassword(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.JSONRequest(t, "POST", "/api/auth/register", map[string]string{
		"name": "Shorty", "email": "short@example.com", "password": "short",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "password must be at least 8 characters")
}
