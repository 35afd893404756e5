package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/app/features/auditlog"
	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType string `json:"event_type"`
		ActorName string `json:"actor_name"`
		OrgName   string `json:"org_name"`
	} `json:"items"`
	Total int64 `json:"total"`
}

func setup(t *testing.T) (http.Handler, *orgcontext.Registry, testutil.TestUser, testutil.TestUser) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	admin := fx.CreateUser(ctx, "Ada Admin", "admin@example.com", "admin")
	owner := fx.CreateUser(ctx, "Olive Owner", "owner@example.com", "user")
	org := fx.CreateOrganization(ctx, "Acme", owner.ID)

	store := audit.New(db)
	now := time.Now().UTC()
	events := []audit.Event{
		{Timestamp: now.Add(-3 * time.Minute), Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &owner.ID, Success: true},
		{Timestamp: now.Add(-2 * time.Minute), Category: audit.CategoryOrg, EventType: audit.EventOrgCreated, ActorID: &owner.ID, OrganizationID: &org.ID, Success: true},
		{Timestamp: now.Add(-time.Minute), Category: audit.CategorySecurity, EventType: audit.EventAccessDenied, ActorID: &owner.ID, Success: false},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	reg, _ := testutil.NewRegistry(t, db)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := auditlog.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	return auditlog.Routes(h, sm), reg, testutil.AsTestUser(admin.ID, "admin"), testutil.AsTestUser(owner.ID, "user")
}

func TestServeList(t *testing.T) {
	router, reg, admin, owner := setup(t)

	tests := []struct {
		name   string
		as     testutil.TestUser
		query  string
		status int
		total  int64
	}{
		{"admin sees all", admin, "", http.StatusOK, 3},
		{"filter by category", admin, "?category=org", http.StatusOK, 1},
		{"filter by event type", admin, "?event_type=access_denied", http.StatusOK, 1},
		{"bad category", admin, "?category=nope", http.StatusBadRequest, 0},
		{"bad date", admin, "?start_date=yesterday", http.StatusBadRequest, 0},
		{"non-admin denied", owner, "", http.StatusForbidden, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.SignedIn(t, httptest.NewRequest("GET", "/"+tc.query, nil), reg, tc.as, nil)
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, req)
			rec.AssertStatus(t, tc.status)
			if tc.status != http.StatusOK {
				return
			}
			var body listBody
			rec.DecodeJSON(t, &body)
			if body.Total != tc.total || int64(len(body.Items)) != tc.total {
				t.Errorf("total %d items %d, want %d", body.Total, len(body.Items), tc.total)
			}
		})
	}
}

func TestServeList_ResolvesNames(t *testing.T) {
	router, reg, admin, _ := setup(t)
	req := testutil.SignedIn(t, httptest.NewRequest("GET", "/?category=org", nil), reg, admin, nil)
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	if len(body.Items) != 1 {
		t.Fatalf("items: %d", len(body.Items))
	}
	if body.Items[0].ActorName != "Olive Owner" || body.Items[0].OrgName != "Acme" {
		t.Errorf("names: %+v", body.Items[0])
	}
}
