package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/orghub/internal/app/store/audit"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestStore_QueryFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org1 := primitive.NewObjectID()
	org2 := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	for i, ev := range []audit.Event{
		{OrganizationID: &org1, Category: audit.CategoryOrg, EventType: audit.EventMemberAdded},
		{OrganizationID: &org1, Category: audit.CategoryOrg, EventType: audit.EventOrgRoleChanged},
		{OrganizationID: &org2, Category: audit.CategoryOrg, EventType: audit.EventMemberAdded},
		{Category: audit.CategoryAuth, EventType: audit.EventLogout},
	} {
		ev.Timestamp = base.Add(time.Duration(i) * time.Minute)
		ev.Success = true
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log %d: %v", i, err)
		}
	}

	byOrg, err := store.GetByOrg(ctx, org1, 10)
	if err != nil {
		t.Fatalf("GetByOrg: %v", err)
	}
	if len(byOrg) != 2 {
		t.Fatalf("expected 2 events for org1, got %d", len(byOrg))
	}
	if byOrg[0].EventType != audit.EventOrgRoleChanged {
		t.Errorf("expected newest first, got %q", byOrg[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventMemberAdded})
	if err != nil {
		t.Fatalf("CountByFilter: %v", err)
	}
	if n != 2 {
		t.Errorf("member_added count: got %d, want 2", n)
	}

	start := base.Add(90 * time.Second)
	ranged, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("time range: got %d events, want 2", len(ranged))
	}

	page, err := store.Query(ctx, audit.QueryFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query paged: %v", err)
	}
	if len(page) != 1 || page[0].EventType != audit.EventMemberAdded {
		t.Errorf("paging: got %+v", page)
	}
}
