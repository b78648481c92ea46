// Package tenant resolves the organization a request operates on and
// provides the query scope every tenant-owned table is read through.
package tenant

import (
	"context"
	"errors"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// AllowedRoles are the membership roles that may use the staff API.
// Customer self-service memberships are excluded.
var AllowedRoles = []models.OrgRole{models.OrgRoleAdmin, models.OrgRoleStaff}

var (
	ErrOrganizationNotFound = apperr.NotFound("Organization")
	ErrNotMember            = apperr.Authorization("Not a member of this organization")
)

// Context is the resolved tenant for one request
type Context struct {
	Organization models.Organization
	Membership   models.OrganizationMembership
}

// OrgID returns the id every data access must be filtered by
func (t *Context) OrgID() uint {
	return t.Organization.ID
}

// IsAdmin reports whether the member administers the organization
func (t *Context) IsAdmin() bool {
	return t.Membership.Role == models.OrgRoleAdmin
}

// Store looks up organizations and memberships
type Store interface {
	OrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	Membership(ctx context.Context, orgID, userID uint, roles []models.OrgRole) (*models.OrganizationMembership, error)
}

// GormStore implements Store over GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new tenant store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OrganizationBySlug returns the organization or ErrOrganizationNotFound
func (s *GormStore) OrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading organization")
	}
	return &org, nil
}

// Membership returns the user's membership if its role is in roles, or ErrNotMember
func (s *GormStore) Membership(ctx context.Context, orgID, userID uint, roles []models.OrgRole) (*models.OrganizationMembership, error) {
	var m models.OrganizationMembership
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND role IN ?", orgID, userID, roles).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading membership")
	}
	return &m, nil
}

// Resolver maps a slug and an authenticated user to a tenant Context
type Resolver struct {
	store Store
	roles []models.OrgRole
}

// NewResolver creates a resolver admitting AllowedRoles
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, roles: AllowedRoles}
}

// Resolve loads the organization by slug and checks the user's membership
func (r *Resolver) Resolve(ctx context.Context, slug string, user *models.User) (*Context, error) {
	org, err := r.store.OrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	membership, err := r.store.Membership(ctx, org.ID, user.ID, r.roles)
	if err != nil {
		return nil, err
	}
	return &Context{Organization: *org, Membership: *membership}, nil
}
