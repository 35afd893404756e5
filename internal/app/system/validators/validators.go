// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Directory collections
	ensure("users", usersSchema())
	ensure("organizations", orgsSchema())
	ensure("org_roles", orgRolesSchema())
	ensure("role_permissions", rolePermissionsSchema())

	// Invitations and per-org content
	ensure("invitations", invitationsSchema())
	ensure("announcements", announcementsSchema())

	// Append-only or short-lived; shape is enforced by their stores.
	ensure("audit_events", nil)
	ensure("password_resets", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// roleEnum lists stored role names. "member" is the legacy spelling of "user"
// and is still accepted on read.
var roleEnum = bson.A{"user", "member", "admin", "account_owner", "sub_account_owner"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "email_ci", "role"},
			"properties": bson.M{
				"full_name":     bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":  bson.M{"bsonType": "string"},
				"email":         bson.M{"bsonType": "string", "minLength": 3},
				"email_ci":      bson.M{"bsonType": "string", "minLength": 3},
				"password_hash": bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": roleEnum},
				"status":        bson.M{"enum": bson.A{"active", "disabled"}},
			},
		},
	}
}

func orgsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "owner_id", "member_ids", "status"},
			"properties": bson.M{
				"name":            bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci":         bson.M{"bsonType": "string", "minLength": 1},
				"owner_id":        bson.M{"bsonType": "objectId"},
				"member_ids":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"sub_account_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"status":          bson.M{"enum": bson.A{"active"}},
			},
		},
	}
}

func orgRolesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"org_id", "user_id", "role"},
			"properties": bson.M{
				"org_id":  bson.M{"bsonType": "objectId"},
				"user_id": bson.M{"bsonType": "objectId"},
				"role":    bson.M{"enum": roleEnum},
			},
		},
	}
}

func rolePermissionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "pages", "actions"},
			"properties": bson.M{
				"_id":     bson.M{"enum": bson.A{"user", "admin", "account_owner", "sub_account_owner"}},
				"pages":   bson.M{"bsonType": "object", "additionalProperties": bson.M{"bsonType": "bool"}},
				"actions": bson.M{"bsonType": "object", "additionalProperties": bson.M{"bsonType": "bool"}},
			},
		},
	}
}

func invitationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"token", "org_id", "role", "status", "uses", "max_uses", "expires_at"},
			"properties": bson.M{
				"token":      bson.M{"bsonType": "string", "minLength": 16},
				"org_id":     bson.M{"bsonType": "objectId"},
				"email":      bson.M{"bsonType": "string"},
				"role":       bson.M{"enum": roleEnum},
				"status":     bson.M{"enum": bson.A{"active", "accepted", "replaced", "revoked"}},
				"uses":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"max_uses":   bson.M{"bsonType": bson.A{"int", "long"}},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func announcementsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"org_id", "title", "body", "active"},
			"properties": bson.M{
				"org_id": bson.M{"bsonType": "objectId"},
				"title":  bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"body":   bson.M{"bsonType": "string"},
				"active": bson.M{"bsonType": "bool"},
			},
		},
	}
}
