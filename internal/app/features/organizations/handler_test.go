package organizations_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/features/organizations"
	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h      *organizations.Handler
	router http.Handler
	reg    *orgcontext.Registry
	fx     *testutil.Fixtures
	db     *mongo.Database
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	reg, _ := testutil.NewRegistry(t, db)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	h := organizations.NewHandler(db, reg, nil, uierrors.NewErrorLogger(logger), logger)
	return &env{h: h, router: organizations.Routes(h, sm), reg: reg, fx: testutil.NewFixtures(t, db), db: db}
}

func TestHandleCreate_FirstOrganizationBecomesActive(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Founder", "founder@example.com", "user")
	user := testutil.AsTestUser(u.ID, "user")

	req := testutil.SignedIn(t, testutil.JSONRequest(t, "POST", "/", map[string]string{"name": "  Acme   Corp "}), e.reg, user, nil)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		Organization struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			OwnerID string `json:"owner_id"`
		} `json:"organization"`
		Context struct {
			State                string `json:"state"`
			ActiveOrganizationID string `json:"active_organization_id"`
			Role                 string `json:"role"`
		} `json:"context"`
	}
	rec.DecodeJSON(t, &body)
	if body.Organization.Name != "Acme Corp" {
		t.Errorf("name: got %q", body.Organization.Name)
	}
	if body.Organization.OwnerID != u.ID.Hex() {
		t.Errorf("owner: got %q", body.Organization.OwnerID)
	}
	if body.Context.ActiveOrganizationID != body.Organization.ID {
		t.Errorf("expected the new org to become active, got %q", body.Context.ActiveOrganizationID)
	}
	if body.Context.Role != "account_owner" {
		t.Errorf("role: got %q", body.Context.Role)
	}

	var entry models.OrgRole
	if err := e.db.Collection("org_roles").FindOne(ctx, bson.M{"user_id": u.ID}).Decode(&entry); err != nil {
		t.Fatalf("org role entry: %v", err)
	}
	if entry.Role != "account_owner" {
		t.Errorf("entry role: got %q", entry.Role)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Founder", "founder@example.com", "user")
	e.fx.CreateOrganization(ctx, "Acme", u.ID)
	user := testutil.AsTestUser(u.ID, "user")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty name", map[string]string{"name": "   "}},
		{"duplicate name", map[string]string{"name": "ACME"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.SignedIn(t, testutil.JSONRequest(t, "POST", "/", tc.body), e.reg, user, nil)
			rec := testutil.NewRecorder()
			e.router.ServeHTTP(rec, req)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, "invalid_input")
		})
	}
}

func TestRoutes_Anonymous(t *testing.T) {
	e := newEnv(t)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.JSONRequest(t, "POST", "/", map[string]string{"name": "X"}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestRoutes_OrgMustBeActive(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Owner", "owner@example.com", "user")
	alpha := e.fx.CreateOrganization(ctx, "Alpha", u.ID)
	beta := e.fx.CreateOrganization(ctx, "Beta", u.ID)
	user := testutil.AsTestUser(u.ID, "user")

	req := testutil.SignedIn(t, httptest.NewRequest("GET", "/"+beta.ID.Hex(), nil), e.reg, user, &alpha.ID)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	req = testutil.SignedIn(t, httptest.NewRequest("GET", "/"+alpha.ID.Hex(), nil), e.reg, user, &alpha.ID)
	rec = testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Alpha"`)
}

func TestHandleRename_RequiresEditAction(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := e.fx.CreateUser(ctx, "Owner", "owner@example.com", "user")
	member := e.fx.CreateUser(ctx, "Member", "member@example.com", "user")
	org := e.fx.CreateOrganization(ctx, "Alpha", owner.ID, member.ID)

	body := map[string]string{"name": "Alpha Two"}
	req := testutil.SignedIn(t, testutil.JSONRequest(t, "PATCH", "/"+org.ID.Hex(), body), e.reg, testutil.AsTestUser(member.ID, "user"), &org.ID)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	req = testutil.SignedIn(t, testutil.JSONRequest(t, "PATCH", "/"+org.ID.Hex(), body), e.reg, testutil.AsTestUser(owner.ID, "user"), &org.ID)
	rec = testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Alpha Two"`)
}

func TestHandleDelete_FallsBackToNextOrganization(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := e.fx.CreateUser(ctx, "Owner", "owner@example.com", "user")
	member := e.fx.CreateUser(ctx, "Member", "member@example.com", "user")
	alpha := e.fx.CreateOrganization(ctx, "Alpha", owner.ID, member.ID)
	beta := e.fx.CreateOrganization(ctx, "Beta", member.ID)
	e.fx.SetOrgRole(ctx, alpha.ID, member.ID, "sub_account_owner")
	pending := e.fx.CreateInvitation(ctx, alpha.ID, owner.ID, "", "user", time.Hour)
	elsewhere := e.fx.CreateInvitation(ctx, beta.ID, member.ID, "", "user", time.Hour)

	// The member's session has Alpha active before the owner deletes it.
	memberReq := testutil.SignedIn(t, httptest.NewRequest("GET", "/", nil), e.reg, testutil.AsTestUser(member.ID, "user"), &alpha.ID)
	memberSession, _ := orgcontext.FromRequest(memberReq)
	if !memberSession.View().IsActive(alpha.ID) {
		t.Fatal("expected alpha active for the member")
	}

	req := testutil.SignedIn(t, httptest.NewRequest("DELETE", "/"+alpha.ID.Hex(), nil), e.reg, testutil.AsTestUser(owner.ID, "user"), &alpha.ID)
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	if n, _ := e.db.Collection("organizations").CountDocuments(ctx, bson.M{"_id": alpha.ID}); n != 0 {
		t.Error("expected the organization to be deleted")
	}
	if n, _ := e.db.Collection("org_roles").CountDocuments(ctx, bson.M{"org_id": alpha.ID}); n != 0 {
		t.Errorf("expected role entries removed, %d remain", n)
	}
	if v := memberSession.View(); !v.IsActive(beta.ID) {
		t.Errorf("expected member to fall back to beta, got %v", v.ActiveOrgID)
	}

	var inv models.Invitation
	if err := e.db.Collection("invitations").FindOne(ctx, bson.M{"_id": pending.ID}).Decode(&inv); err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != models.InvitationRevoked {
		t.Errorf("invitation of deleted org: status %q, want revoked", inv.Status)
	}
	if err := e.db.Collection("invitations").FindOne(ctx, bson.M{"_id": elsewhere.ID}).Decode(&inv); err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != models.InvitationActive {
		t.Errorf("invitation of another org: status %q, want active", inv.Status)
	}
}
