package tenant

import (
	"context"
	"errors"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// Scope restricts a query to rows owned by orgID. Every query on a
// tenant-owned table goes through it, including lookups by primary key.
func Scope(orgID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", orgID)
	}
}

// ScopeTable is Scope for queries that join other tenant-owned tables
func ScopeTable(table string, orgID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".organization_id = ?", orgID)
	}
}

// Find loads the row with primary key id owned by orgID into dest. A row of
// another organization is reported exactly like a missing one.
func Find(ctx context.Context, db *gorm.DB, orgID, id uint, dest interface{}, resource string) error {
	err := db.WithContext(ctx).Scopes(Scope(orgID)).First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "loading %s %d", resource, id)
	}
	return nil
}
