// internal/app/store/directory/directory.go
package directory

import (
	"context"
	"errors"
	"fmt"

	organizationstore "github.com/dalemusser/orghub/internal/app/store/organizations"
	orgrolestore "github.com/dalemusser/orghub/internal/app/store/orgroles"
	userstore "github.com/dalemusser/orghub/internal/app/store/users"
	"github.com/dalemusser/orghub/internal/app/system/orgcontext"
	"github.com/dalemusser/orghub/internal/app/system/rbac"
	"github.com/dalemusser/orghub/internal/app/system/resolver"
	"github.com/dalemusser/orghub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrMalformed wraps a stored record that failed validation on read.
var ErrMalformed = errors.New("directory: malformed record")

// Directory reads users, organizations and org roles for permission
// resolution and membership loading.
type Directory struct {
	users    *userstore.Store
	orgs     *organizationstore.Store
	orgRoles *orgrolestore.Store
}

var (
	_ resolver.Directory          = (*Directory)(nil)
	_ orgcontext.MembershipLoader = (*Directory)(nil)
)

// New builds a Directory over db.
func New(db *mongo.Database) *Directory {
	return &Directory{
		users:    userstore.New(db),
		orgs:     organizationstore.New(db),
		orgRoles: orgrolestore.New(db),
	}
}

// GlobalRole returns the stored role of userID. "member" reads as user.
func (d *Directory) GlobalRole(ctx context.Context, userID primitive.ObjectID) (rbac.Role, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "", notFound(err)
	}
	if u.Role == "" {
		return rbac.RoleUser, nil
	}
	role, ok := rbac.ParseRole(u.Role)
	if !ok {
		return "", fmt.Errorf("%w: user %s has role %q", ErrMalformed, userID.Hex(), u.Role)
	}
	return role, nil
}

// Organization loads and validates one organization.
func (d *Directory) Organization(ctx context.Context, orgID primitive.ObjectID) (models.Organization, error) {
	org, err := d.orgs.GetByID(ctx, orgID)
	if err != nil {
		return models.Organization{}, notFound(err)
	}
	if err := validateOrg(org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// OrgRole returns the explicit role entry for (orgID, userID), if any.
func (d *Directory) OrgRole(ctx context.Context, orgID, userID primitive.ObjectID) (rbac.Role, bool, error) {
	e, err := d.orgRoles.Get(ctx, orgID, userID)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	role, ok := rbac.ParseRole(e.Role)
	if !ok {
		return "", false, fmt.Errorf("%w: org role for user %s in org %s is %q", ErrMalformed, userID.Hex(), orgID.Hex(), e.Role)
	}
	return role, true, nil
}

// OrganizationsFor lists userID's organizations in display order. Malformed
// organizations are left out rather than failing the whole list.
func (d *Directory) OrganizationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Organization, error) {
	orgs, err := d.orgs.OrganizationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := orgs[:0]
	for _, o := range orgs {
		if validateOrg(o) == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func validateOrg(o models.Organization) error {
	if o.ID.IsZero() || o.OwnerID.IsZero() {
		return fmt.Errorf("%w: organization %s has no owner", ErrMalformed, o.ID.Hex())
	}
	if o.Name == "" {
		return fmt.Errorf("%w: organization %s has no name", ErrMalformed, o.ID.Hex())
	}
	return nil
}

func notFound(err error) error {
	if err == mongo.ErrNoDocuments {
		return resolver.ErrNotFound
	}
	return err
}
