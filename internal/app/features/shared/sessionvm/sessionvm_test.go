package sessionvm

import (
	"testing"

	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestContext_NilSession(t *testing.T) {
	vm := Context(nil)
	if vm.State != orgcontext.StateUninitialized.String() {
		t.Errorf("state: got %q", vm.State)
	}
	if vm.Pages == nil || vm.Actions == nil || vm.Organizations == nil {
		t.Error("lists must encode as [] not null")
	}
}

func TestOrganizations_FlagsOwner(t *testing.T) {
	me := primitive.NewObjectID()
	orgs := []models.Organization{
		{ID: primitive.NewObjectID(), Name: "Mine", OwnerID: me},
		{ID: primitive.NewObjectID(), Name: "Theirs", OwnerID: primitive.NewObjectID()},
	}
	got := Organizations(orgs, orgcontext.View{UserID: me})
	if len(got) != 2 || !got[0].Owner || got[1].Owner {
		t.Fatalf("got %+v", got)
	}
	if got[0].Active || got[1].Active {
		t.Error("unresolved view has no active org")
	}
}

func TestAllowed_SortedTrueOnly(t *testing.T) {
	got := allowed(map[string]bool{"b": true, "a": true, "c": false})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v", got)
	}
}
