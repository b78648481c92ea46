package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemRole classifies an identity across all organizations
type SystemRole string

const (
	SystemRoleStaff         SystemRole = "staff"
	SystemRolePlatformAdmin SystemRole = "platform_admin"
)

// User is the local record of an identity-provider subject.
// Rows are created lazily by the auth middleware on first successful token
// verification and refreshed on every later one.
type User struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	ExternalID string         `gorm:"uniqueIndex;not null" json:"external_id"` // IdP subject (sub claim)
	Email      string         `gorm:"not null;index" json:"email"`
	Name       *string        `json:"name"`
	SystemRole SystemRole     `gorm:"type:varchar(20);default:'staff'" json:"system_role"`

	// Relationships
	OrganizationMemberships []OrganizationMembership `gorm:"foreignKey:UserID" json:"organization_memberships,omitempty"`
}

// DisplayName returns the name if set, otherwise the email
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
