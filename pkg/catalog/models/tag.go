package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag represents a label that can be applied to customers.
// Tag names are unique within an organization.
type Tag struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;uniqueIndex:idx_org_tag" json:"organization_id"`
	Name           string         `gorm:"not null;uniqueIndex:idx_org_tag" json:"name"`

	// Relationships
	Customers []Customer `gorm:"many2many:customer_tags;" json:"customers,omitempty"`
}
