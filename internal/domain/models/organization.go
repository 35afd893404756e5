// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization includes a case/diacritic-insensitive name for search/sort.
//
// OwnerID is always resolved as account_owner for this organization, whatever
// org_roles says. SubAccountIDs is the older association list kept for
// organizations created before per-organization roles existed.
type Organization struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Name          string               `bson:"name" json:"name"`
	NameCI        string               `bson:"name_ci" json:"-"` // ← always stored
	OwnerID       primitive.ObjectID   `bson:"owner_id" json:"owner_id"`
	MemberIDs     []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	SubAccountIDs []primitive.ObjectID `bson:"sub_account_ids,omitempty" json:"sub_account_ids,omitempty"`
	Status        string               `bson:"status" json:"status"`
	CreatedBy     primitive.ObjectID   `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is the owner or appears in MemberIDs.
func (o Organization) HasMember(userID primitive.ObjectID) bool {
	if o.OwnerID == userID {
		return true
	}
	for _, id := range o.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasSubAccount reports whether userID is linked through the legacy sub-account list.
func (o Organization) HasSubAccount(userID primitive.ObjectID) bool {
	for _, id := range o.SubAccountIDs {
		if id == userID {
			return true
		}
	}
	return false
}
