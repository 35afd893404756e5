package userstore_test

import (
	"context"
	"errors"
	"testing"

	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/indexes"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	"github.com/dalemusser/orghub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newStore(t *testing.T) (*userstore.Store, *mongo.Database, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return userstore.New(db), db, ctx
}

func TestStore_Create_Defaults(t *testing.T) {
	store, _, ctx := newStore(t)

	created, err := store.Create(ctx, models.User{
		FullName: "  Ada   Lovelace ",
		Email:    " Ada@Example.COM ",
	}, "s3cret-pass")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("FullName: got %q", created.FullName)
	}
	if created.Email != "ada@example.com" {
		t.Errorf("Email: got %q", created.Email)
	}
	if created.Role != "user" {
		t.Errorf("expected default role user, got %q", created.Role)
	}
	if created.Status != userstore.StatusActive {
		t.Errorf("expected status active, got %q", created.Status)
	}
	if created.PasswordHash == "" || created.PasswordHash == "s3cret-pass" {
		t.Error("expected a bcrypt hash")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps")
	}
}

func TestStore_Create_MemberAliasStoredAsUser(t *testing.T) {
	store, _, ctx := newStore(t)

	created, err := store.Create(ctx, models.User{FullName: "M", Email: "m@example.com", Role: "member"}, "pw")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Role != "user" {
		t.Errorf("role: got %q, want user", created.Role)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	store, _, ctx := newStore(t)

	tests := []struct {
		name string
		user models.User
		pw   string
	}{
		{"missing name", models.User{Email: "a@example.com"}, "pw"},
		{"missing email", models.User{FullName: "A"}, "pw"},
		{"missing password", models.User{FullName: "A", Email: "a@example.com"}, ""},
		{"bad role", models.User{FullName: "A", Email: "a@example.com", Role: "superuser"}, "pw"},
		{"bad status", models.User{FullName: "A", Email: "a@example.com", Status: "pending"}, "pw"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tc.user, tc.pw); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	store, _, ctx := newStore(t)

	if _, err := store.Create(ctx, models.User{FullName: "One", Email: "dup@example.com"}, "pw"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Two", Email: "DUP@example.com"}, "pw")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail_CaseInsensitive(t *testing.T) {
	store, _, ctx := newStore(t)

	created, _ := store.Create(ctx, models.User{FullName: "Find Me", Email: "find@example.com"}, "pw")
	got, err := store.GetByEmail(ctx, "FIND@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Error("wrong user returned")
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_Authenticate(t *testing.T) {
	store, _, ctx := newStore(t)
	created, _ := store.Create(ctx, models.User{FullName: "Auth", Email: "auth@example.com"}, "right-pass")

	u, err := store.Authenticate(ctx, "auth@example.com", "right-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Error("wrong user")
	}

	if _, err := store.Authenticate(ctx, "auth@example.com", "wrong"); !errors.Is(err, userstore.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := store.Authenticate(ctx, "ghost@example.com", "right-pass"); !errors.Is(err, userstore.ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}

	if err := store.SetStatus(ctx, created.ID, "disabled"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := store.Authenticate(ctx, "auth@example.com", "right-pass"); !errors.Is(err, userstore.ErrDisabled) {
		t.Errorf("disabled: got %v", err)
	}
}

func TestStore_SetPasswordAndRole(t *testing.T) {
	store, _, ctx := newStore(t)
	created, _ := store.Create(ctx, models.User{FullName: "P", Email: "p@example.com"}, "old-pass")

	if err := store.SetPassword(ctx, created.ID, "new-pass"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if _, err := store.Authenticate(ctx, "p@example.com", "new-pass"); err != nil {
		t.Errorf("expected new password to work: %v", err)
	}

	if err := store.SetRole(ctx, created.ID, rbac.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	got, _ := store.GetByID(ctx, created.ID)
	if got.Role != "admin" {
		t.Errorf("role: got %q", got.Role)
	}
	if err := store.SetRole(ctx, created.ID, rbac.Role("root")); err == nil {
		t.Error("expected invalid role to be rejected")
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), rbac.RoleAdmin); err != mongo.ErrNoDocuments {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	store, db, ctx := newStore(t)
	created, _ := store.Create(ctx, models.User{FullName: "Fetch", Email: "fetch@example.com", Role: "account_owner"}, "pw")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, created.ID.Hex())
	if su == nil {
		t.Fatal("expected a session user")
	}
	if su.Role != "account_owner" || su.Email != "fetch@example.com" || su.Name != "Fetch" {
		t.Errorf("unexpected session user: %+v", su)
	}

	if f.FetchUser(ctx, "bad-id") != nil {
		t.Error("malformed id must return nil")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("unknown id must return nil")
	}

	_ = store.SetStatus(ctx, created.ID, "disabled")
	if f.FetchUser(ctx, created.ID.Hex()) != nil {
		t.Error("disabled user must return nil")
	}
}
