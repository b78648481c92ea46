package models

import (
	"time"

	"gorm.io/gorm"
)

// CustomerStatus is the lifecycle state of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusProspect CustomerStatus = "prospect"
)

// Customer is a member or prospect of an organization
type Customer struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID  uint           `gorm:"not null;index" json:"organization_id"`
	FirstName       string         `gorm:"not null" json:"first_name"`
	LastName        string         `gorm:"not null" json:"last_name"`
	Email           string         `gorm:"index" json:"email"`
	Phone           string         `json:"phone"`
	Status          CustomerStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	HouseholdID     *uint          `gorm:"index" json:"household_id"`
	IsHouseholdHead bool           `gorm:"default:false" json:"is_household_head"`

	// Relationships
	Household *Household `gorm:"foreignKey:HouseholdID" json:"household,omitempty"`
	Tags      []Tag      `gorm:"many2many:customer_tags;" json:"tags,omitempty"`
}

// Household groups customers that share an account, with at most one head
type Household struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`

	// Relationships
	Members []Customer `gorm:"foreignKey:HouseholdID" json:"members,omitempty"`
}
