// internal/app/features/members/list.go
package members

import (
	"context"
	"net/http"
	"sort"

	uierrors "github.com/dalemusser/orghub/internal/app/features/errors"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeList handles GET /api/organizations/{orgID}/members. Each member's role
// is resolved the same way their own session would resolve it.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	orgID := authz.ActiveOrgID(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, orgID)
	if err == mongo.ErrNoDocuments {
		uierrors.WriteError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		h.ErrLog.Log500(w, r, "load organization", err)
		return
	}

	ids := memberIDs(org.OwnerID, org.MemberIDs, org.SubAccountIDs)
	users, err := h.Users.GetMany(ctx, ids)
	if err != nil {
		h.ErrLog.Log500(w, r, "load members", err)
		return
	}

	rows := make([]memberVM, 0, len(users))
	for _, u := range users {
		res := h.Resolver.Resolve(ctx, u.ID, &orgID)
		rows = append(rows, memberVM{
			ID:     u.ID.Hex(),
			Name:   u.FullName,
			Email:  u.Email,
			Role:   string(res.Role),
			Source: string(res.Source),
			Owner:  u.ID == org.OwnerID,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Owner != rows[j].Owner {
			return rows[i].Owner
		}
		a, b := text.Fold(rows[i].Name), text.Fold(rows[j].Name)
		if a != b {
			return a < b
		}
		return rows[i].ID < rows[j].ID
	})

	uierrors.WriteJSON(w, http.StatusOK, listResponse{OrganizationID: orgID.Hex(), Members: rows})
}

// memberIDs merges the owner, member and legacy sub-account lists without duplicates.
func memberIDs(owner primitive.ObjectID, lists ...[]primitive.ObjectID) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{owner: true}
	out := []primitive.ObjectID{owner}
	for _, l := range lists {
		for _, id := range l {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
