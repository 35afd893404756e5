package testutil

import (
	"net/http"
	"testing"

	"github.com/dalemusser/orghub/internal/app/store/directory"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewRegistry builds a session registry over db with the default role table.
func NewRegistry(t *testing.T, db *mongo.Database) (*orgcontext.Registry, *rbac.Policy) {
	t.Helper()
	dir := directory.New(db)
	policy := rbac.NewDefaultPolicy()
	reg := orgcontext.NewRegistry(dir, resolver.New(dir, policy, zap.NewNop()), zap.NewNop())
	t.Cleanup(reg.Close)
	return reg, policy
}

// SignedIn returns r carrying user and a loaded organization session from reg.
// active (may be nil) is the active-organization hint.
func SignedIn(t *testing.T, r *http.Request, reg *orgcontext.Registry, user TestUser, active *primitive.ObjectID) *http.Request {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		t.Fatalf("bad test user id %q: %v", user.ID, err)
	}
	ctx, cancel := TestContext()
	defer cancel()

	s := reg.Get("test-"+user.ID, id)
	s.Load(ctx, active)
	return orgcontext.WithSession(WithUser(r, user), s)
}
