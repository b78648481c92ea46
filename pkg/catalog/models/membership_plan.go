package models

import (
	"time"

	"gorm.io/gorm"
)

// PlanType determines which plan fields are required
type PlanType string

const (
	PlanTypeRecurring PlanType = "recurring"
	PlanTypeFixedTerm PlanType = "fixed_term"
	PlanTypePunchCard PlanType = "punch_card"
)

// MembershipPlan is a sellable membership offered at one or more locations
type MembershipPlan struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID  uint           `gorm:"not null;index" json:"organization_id"`
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description"`
	PlanType        PlanType       `gorm:"type:varchar(20);not null" json:"plan_type"`
	PriceCents      int            `gorm:"not null;default:0" json:"price_cents"`
	BillingInterval string         `gorm:"type:varchar(20)" json:"billing_interval,omitempty"` // recurring plans only
	TermMonths      *int           `json:"term_months,omitempty"`                             // fixed_term plans only
	VisitLimit      *int           `json:"visit_limit,omitempty"`                             // punch_card plans only
	Active          bool           `gorm:"not null" json:"active"`

	// Relationships
	Locations []Location `gorm:"many2many:membership_plan_locations;" json:"locations,omitempty"`
}
