// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses.
const (
	InvitationActive   = "active"
	InvitationAccepted = "accepted"
	InvitationReplaced = "replaced"
	InvitationRevoked  = "revoked"
)

// Invitation grants Role in OrgID to whoever redeems Token before ExpiresAt.
// Uses never exceeds MaxUses; the redemption that reaches MaxUses flips Status
// to accepted.
type Invitation struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Token      string              `bson:"token" json:"token"`
	OrgID      primitive.ObjectID  `bson:"org_id" json:"org_id"`
	Email      string              `bson:"email,omitempty" json:"email,omitempty"`
	EmailCI    string              `bson:"email_ci,omitempty" json:"-"`
	Role       string              `bson:"role" json:"role"`
	Status     string              `bson:"status" json:"status"`
	Uses       int                 `bson:"uses" json:"uses"`
	MaxUses    int                 `bson:"max_uses" json:"max_uses"`
	ExpiresAt  time.Time           `bson:"expires_at" json:"expires_at"`
	CreatedBy  primitive.ObjectID  `bson:"created_by" json:"created_by"`
	AcceptedBy *primitive.ObjectID `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	AcceptedAt *time.Time          `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}
