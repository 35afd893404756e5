// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered principal. The _id is issued at registration and never changes.
//
// NOTE:
//   - Role is the *global* role. Organization-scoped roles live in the org_roles
//     collection and override this while that organization is active.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName      string             `bson:"full_name" json:"full_name"`
	FullNameCI    string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email         string             `bson:"email" json:"email"`
	EmailCI       string             `bson:"email_ci" json:"-"` // unique
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	Role          string             `bson:"role" json:"role"` // user | admin | account_owner | sub_account_owner
	Status        string             `bson:"status,omitempty" json:"status,omitempty"`
	EmailVerified bool               `bson:"email_verified" json:"email_verified"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
