// internal/app/system/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/orghub/internal/app/system/metrics"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Directory when the principal or organization does not exist.
var ErrNotFound = errors.New("directory: not found")

// Directory is the read side of the organization directory that the resolver needs.
// Implementations return decoded, validated records; malformed documents are errors.
type Directory interface {
	// GlobalRole returns the role stored on the principal record.
	GlobalRole(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error)
	// Organization loads one organization.
	Organization(ctx context.Context, orgID primitive.ObjectID) (models.Organization, error)
	// OrgRole returns the explicit role entry for (orgID, userID), if any.
	OrgRole(ctx context.Context, orgID, userID primitive.ObjectID) (rbac.Role, bool, error)
}

// Source records which rule produced a Resolution's role.
type Source string

const (
	SourceGlobal        Source = "global"
	SourceOwner         Source = "owner"
	SourceOrgRole       Source = "org_role"
	SourceSubAccount    Source = "legacy_sub_account"
	SourceMemberDefault Source = "member_default"
	SourceNotMember     Source = "not_member"
	SourceFallback      Source = "fallback"
)

// Resolution is the effective role and permissions for one (principal, org) pair.
type Resolution struct {
	UserID      primitive.ObjectID
	OrgID       *primitive.ObjectID
	Role        rbac.Role
	Permissions rbac.PermissionSet
	Source      Source
	// Degraded is set when a directory failure forced the least-privilege result.
	Degraded bool
	Err      error
}

// Resolver computes effective permissions. It never returns an error: any
// directory failure resolves to the user role.
type Resolver struct {
	dir    Directory
	policy *rbac.Policy
	log    *zap.Logger
}

// New constructs a Resolver.
func New(dir Directory, policy *rbac.Policy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, policy: policy, log: logger}
}

// Policy returns the role table this resolver reads.
func (rv *Resolver) Policy() *rbac.Policy {
	return rv.policy
}

// Resolve computes the effective role for userID with orgID active (nil means
// no active organization).
func (rv *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID, orgID *primitive.ObjectID) Resolution {
	res := Resolution{UserID: userID, OrgID: orgID}

	role, src, err := rv.effectiveRole(ctx, userID, orgID)
	if err != nil {
		fields := []zap.Field{zap.String("user_id", userID.Hex()), zap.Error(err)}
		if orgID != nil {
			fields = append(fields, zap.String("org_id", orgID.Hex()))
		}
		rv.log.Warn("permission resolution degraded to default role", fields...)
		role, src = rbac.RoleUser, SourceFallback
		res.Degraded = true
		res.Err = err
	}

	res.Role = role
	res.Source = src
	res.Permissions = rv.policy.PermissionsForRole(role)
	metrics.ObserveResolution(string(src), res.Degraded)
	return res
}

func (rv *Resolver) effectiveRole(ctx context.Context, userID primitive.ObjectID, orgID *primitive.ObjectID) (rbac.Role, Source, error) {
	if rv.dir == nil {
		return "", "", errors.New("directory not configured")
	}

	if orgID == nil {
		role, err := rv.dir.GlobalRole(ctx, userID)
		if err != nil {
			return "", "", err
		}
		if !role.Valid() {
			role = rbac.RoleUser
		}
		return role, SourceGlobal, nil
	}

	org, err := rv.dir.Organization(ctx, *orgID)
	if err != nil {
		return "", "", err
	}

	// Owner precedence: no stored entry can downgrade the owner.
	if org.OwnerID == userID {
		return rbac.RoleAccountOwner, SourceOwner, nil
	}

	role, found, err := rv.dir.OrgRole(ctx, *orgID, userID)
	if err != nil {
		return "", "", err
	}
	if found {
		if !role.Valid() {
			return "", "", fmt.Errorf("org role entry has unknown role %q", role)
		}
		return role, SourceOrgRole, nil
	}

	if org.HasSubAccount(userID) {
		return rbac.RoleMember, SourceSubAccount, nil
	}
	if org.HasMember(userID) {
		return rbac.RoleMember, SourceMemberDefault, nil
	}
	return rbac.RoleUser, SourceNotMember, nil
}

// Fallback returns the least-privilege resolution for callers that could not
// even reach the point of resolving (for example, a failed membership load).
func (rv *Resolver) Fallback(userID primitive.ObjectID, orgID *primitive.ObjectID, err error) Resolution {
	return Resolution{
		UserID:      userID,
		OrgID:       orgID,
		Role:        rbac.RoleUser,
		Permissions: rv.policy.PermissionsForRole(rbac.RoleUser),
		Source:      SourceFallback,
		Degraded:    true,
		Err:         err,
	}
}
