// internal/domain/models/rolepermissions.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RolePermissions is the stored permission set for one role (_id is the role name).
// Updates always replace both maps.
type RolePermissions struct {
	Role      string              `bson:"_id" json:"role"`
	Pages     map[string]bool     `bson:"pages" json:"pages"`
	Actions   map[string]bool     `bson:"actions" json:"actions"`
	UpdatedBy *primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
