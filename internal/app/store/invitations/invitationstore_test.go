package invitationstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	invitationstore "github.com/dalemusser/orghub/internal/app/store/invitations"
	"github.com/dalemusser/orghub/internal/app/system/indexes"
	"github.com/dalemusser/orghub/internal/app/system/invites"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*invitationstore.Store, *mongo.Database, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return invitationstore.New(db), db, ctx
}

func TestStore_CreateDefaults(t *testing.T) {
	store, _, ctx := newStore(t)

	inv, err := store.Create(ctx, models.Invitation{
		OrgID: primitive.NewObjectID(),
		Email: " New@Example.com ",
		Role:  "member",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(inv.Token) != 2*invitationstore.TokenLength {
		t.Errorf("token length: got %d", len(inv.Token))
	}
	if inv.Status != models.InvitationActive || inv.MaxUses != 1 || inv.Uses != 0 {
		t.Errorf("defaults: %+v", inv)
	}
	if inv.Role != "user" {
		t.Errorf("role alias: got %q", inv.Role)
	}
	if inv.Email != "new@example.com" {
		t.Errorf("email: got %q", inv.Email)
	}
	if d := time.Until(inv.ExpiresAt); d < invitationstore.DefaultTTL-time.Minute || d > invitationstore.DefaultTTL {
		t.Errorf("expiry: %v from now", d)
	}

	if _, err := store.Create(ctx, models.Invitation{OrgID: primitive.NewObjectID(), Role: "root"}); err == nil {
		t.Error("expected unknown role to be rejected")
	}
	if _, err := store.Create(ctx, models.Invitation{Role: "user"}); err == nil {
		t.Error("expected missing org to be rejected")
	}
}

func TestStore_CreateReplacesPreviousForSameEmail(t *testing.T) {
	store, _, ctx := newStore(t)
	org := primitive.NewObjectID()

	first, _ := store.Create(ctx, models.Invitation{OrgID: org, Email: "a@example.com", Role: "user"})
	other, _ := store.Create(ctx, models.Invitation{OrgID: org, Email: "b@example.com", Role: "user"})
	second, _ := store.Create(ctx, models.Invitation{OrgID: org, Email: "A@example.com", Role: "admin"})

	got, err := store.ByToken(ctx, first.Token, true)
	if err != nil {
		t.Fatalf("ByToken: %v", err)
	}
	if got.Status != models.InvitationReplaced {
		t.Errorf("first status: got %q, want replaced", got.Status)
	}
	if _, err := store.ByToken(ctx, first.Token, false); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("replaced token must not match active lookup, got %v", err)
	}
	if g, _ := store.ByToken(ctx, other.Token, false); g.Status != models.InvitationActive {
		t.Error("other email must stay active")
	}
	if g, _ := store.ByToken(ctx, second.Token, false); g.Status != models.InvitationActive {
		t.Error("new invitation must be active")
	}

	active, err := store.ListByOrg(ctx, org, models.InvitationActive)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active count: got %d, want 2", len(active))
	}
}

func TestStore_ConsumeSingleUse(t *testing.T) {
	store, _, ctx := newStore(t)
	inv, _ := store.Create(ctx, models.Invitation{OrgID: primitive.NewObjectID(), Role: "user"})
	u := primitive.NewObjectID()

	got, err := store.Consume(ctx, inv.Token, u, time.Now())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.Uses != 1 || got.Status != models.InvitationAccepted {
		t.Errorf("after consume: uses=%d status=%q", got.Uses, got.Status)
	}
	if got.AcceptedBy == nil || *got.AcceptedBy != u || got.AcceptedAt == nil {
		t.Error("expected accepted_by/accepted_at")
	}

	if _, err := store.Consume(ctx, inv.Token, primitive.NewObjectID(), time.Now()); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("second consume: got %v", err)
	}
}

func TestStore_ConsumeMultiUse(t *testing.T) {
	store, _, ctx := newStore(t)
	inv, _ := store.Create(ctx, models.Invitation{OrgID: primitive.NewObjectID(), Role: "user", MaxUses: 3})

	for i := 1; i <= 3; i++ {
		got, err := store.Consume(ctx, inv.Token, primitive.NewObjectID(), time.Now())
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		want := models.InvitationActive
		if i == 3 {
			want = models.InvitationAccepted
		}
		if got.Uses != i || got.Status != want {
			t.Errorf("consume %d: uses=%d status=%q", i, got.Uses, got.Status)
		}
	}
}

func TestStore_ConsumeRejectsExpired(t *testing.T) {
	store, _, ctx := newStore(t)
	inv, _ := store.Create(ctx, models.Invitation{
		OrgID:     primitive.NewObjectID(),
		Role:      "user",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	if _, err := store.Consume(ctx, inv.Token, primitive.NewObjectID(), inv.ExpiresAt); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("consume at expiry: got %v", err)
	}
}

func TestStore_ConsumeConcurrent(t *testing.T) {
	store, _, ctx := newStore(t)
	inv, _ := store.Create(ctx, models.Invitation{OrgID: primitive.NewObjectID(), Role: "user", MaxUses: 2})

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, inv.Token, primitive.NewObjectID(), time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 2 {
		t.Errorf("expected exactly max_uses successful consumes, got %d", wins)
	}
	got, _ := store.ByToken(ctx, inv.Token, true)
	if got.Uses != 2 || got.Status != models.InvitationAccepted {
		t.Errorf("final: uses=%d status=%q", got.Uses, got.Status)
	}
}

func TestStore_ConsumeLegacyUnlimited(t *testing.T) {
	store, db, ctx := newStore(t)
	_, err := db.Collection("invitations").InsertOne(ctx, bson.M{
		"_id":        primitive.NewObjectID(),
		"token":      "legacy-token",
		"org_id":     primitive.NewObjectID(),
		"role":       "user",
		"status":     models.InvitationActive,
		"uses":       5,
		"max_uses":   0,
		"expires_at": time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.Consume(ctx, "legacy-token", primitive.NewObjectID(), time.Now())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.Uses != 6 || got.Status != models.InvitationActive {
		t.Errorf("legacy: uses=%d status=%q", got.Uses, got.Status)
	}
}

func TestStore_Revoke(t *testing.T) {
	store, _, ctx := newStore(t)
	org := primitive.NewObjectID()
	inv, _ := store.Create(ctx, models.Invitation{OrgID: org, Role: "user"})

	if err := store.Revoke(ctx, primitive.NewObjectID(), inv.ID); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("revoke from another org: got %v", err)
	}
	if err := store.Revoke(ctx, org, inv.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := store.Revoke(ctx, org, inv.ID); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("revoke twice: got %v", err)
	}
}

func TestStore_RevokeByOrg(t *testing.T) {
	store, _, ctx := newStore(t)
	org := primitive.NewObjectID()
	other := primitive.NewObjectID()
	a, _ := store.Create(ctx, models.Invitation{OrgID: org, Role: "user"})
	b, _ := store.Create(ctx, models.Invitation{OrgID: org, Role: "sub_account_owner"})
	keep, _ := store.Create(ctx, models.Invitation{OrgID: other, Role: "user"})
	if err := store.Revoke(ctx, org, b.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	n, err := store.RevokeByOrg(ctx, org)
	if err != nil {
		t.Fatalf("RevokeByOrg: %v", err)
	}
	if n != 1 {
		t.Errorf("revoked: got %d, want 1", n)
	}
	if got, _ := store.ByToken(ctx, a.Token, true); got.Status != models.InvitationRevoked {
		t.Errorf("status: got %q", got.Status)
	}
	if _, err := store.ByToken(ctx, keep.Token, false); err != nil {
		t.Errorf("another org's invitation should stay active: %v", err)
	}
}

func TestValidator_AgainstMongoStore(t *testing.T) {
	store, _, ctx := newStore(t)
	inv, _ := store.Create(ctx, models.Invitation{OrgID: primitive.NewObjectID(), Role: "user"})
	v := invites.NewValidator(store, zap.NewNop())

	if _, err := v.Redeem(ctx, inv.Token, primitive.NewObjectID()); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	_, err := v.Redeem(ctx, inv.Token, primitive.NewObjectID())
	if reason, _ := invites.ReasonOf(err); reason != invites.ReasonNotActive {
		t.Errorf("second redeem: got %v", err)
	}
	_, err = v.Validate(ctx, "no-such-token", invites.Options{})
	if reason, _ := invites.ReasonOf(err); reason != invites.ReasonNotFound {
		t.Errorf("unknown token: got %v", err)
	}
}
