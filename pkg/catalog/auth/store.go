package auth

import (
	"context"
	"errors"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// Identity is the subset of verified claims persisted on the user record
type Identity struct {
	Subject string
	Email   string
	Name    *string
}

// IdentityFromClaims applies the email and name fallbacks
func IdentityFromClaims(c *Claims) Identity {
	return Identity{
		Subject: c.Subject,
		Email:   c.ResolvedEmail(),
		Name:    c.ResolvedName(),
	}
}

// IdentityStore persists identities keyed by subject
type IdentityStore interface {
	Upsert(ctx context.Context, id Identity) (*models.User, error)
}

// GormIdentityStore implements IdentityStore over GORM
type GormIdentityStore struct {
	db *gorm.DB
}

// NewGormIdentityStore creates a new identity store
func NewGormIdentityStore(db *gorm.DB) *GormIdentityStore {
	return &GormIdentityStore{db: db}
}

// Upsert inserts the identity with the default staff classification, or
// refreshes email and name of the existing row. It writes exactly once.
func (s *GormIdentityStore) Upsert(ctx context.Context, id Identity) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("external_id = ?", id.Subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ExternalID: id.Subject,
			Email:      id.Email,
			Name:       id.Name,
			SystemRole: models.SystemRoleStaff,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, pkgerrors.Wrap(err, "creating identity")
		}
		return &user, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading identity")
	}

	user.Email = id.Email
	user.Name = id.Name
	if err := db.Model(&user).Select("email", "name").Updates(&user).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "updating identity")
	}
	return &user, nil
}
