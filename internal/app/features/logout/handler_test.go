package logout_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/app/features/logout"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*logout.Handler, *orgcontext.Registry) {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	db := testutil.SetupTestDB(t)
	reg, _ := testutil.NewRegistry(t, db)
	return logout.NewHandler(sm, reg, nil, logger), reg
}

func TestHandleLogout_Anonymous(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, httptest.NewRequest("POST", "/api/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "signed_out") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestHandleLogout_RemovesSessionAndClearsCookie(t *testing.T) {
	h, reg := newTestHandler(t)
	user := testutil.PlainUser()
	req := testutil.SignedIn(t, httptest.NewRequest("POST", "/api/auth/logout", nil), reg, user, nil)
	if reg.Len() != 1 {
		t.Fatalf("Len before logout: %d", reg.Len())
	}

	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
	if reg.Len() != 0 {
		t.Errorf("expected the session to be dropped, Len=%d", reg.Len())
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "test-session=") || !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("expected an expiring cookie, got %q", cookie)
	}
}
