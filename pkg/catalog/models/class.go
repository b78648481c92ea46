package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionStatus is the state of a single class occurrence
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// RosterStatus is the state of a customer's registration for a session
type RosterStatus string

const (
	RosterStatusRegistered RosterStatus = "registered"
	RosterStatusAttended   RosterStatus = "attended"
	RosterStatusNoShow     RosterStatus = "no_show"
	RosterStatusCancelled  RosterStatus = "cancelled"
)

// ClassTemplate is a recurrence definition from which class sessions are generated.
// DaysOfWeek holds ISO weekday numbers (1=Monday..7=Sunday); StartTime and
// EndTime are "HH:MM" 24-hour times of day in the organization's time zone.
type ClassTemplate struct {
	ID             uint                     `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	DeletedAt      gorm.DeletedAt           `gorm:"index" json:"-"`
	OrganizationID uint                     `gorm:"not null;index" json:"organization_id"`
	Name           string                   `gorm:"not null" json:"name"`
	Description    string                   `json:"description"`
	StartDate      time.Time                `gorm:"not null" json:"start_date"`
	EndDate        *time.Time               `json:"end_date"`
	DaysOfWeek     datatypes.JSONSlice[int] `gorm:"not null" json:"days_of_week"`
	StartTime      string                   `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime        string                   `gorm:"type:varchar(5);not null" json:"end_time"`
	Capacity       int                      `gorm:"not null" json:"capacity"`
	LocationID     *uint                    `gorm:"index" json:"location_id"`
	Room           string                   `json:"room"`
	InstructorID   *uint                    `gorm:"index" json:"instructor_id"`

	// Relationships
	Sessions []ClassSession `gorm:"foreignKey:TemplateID" json:"sessions,omitempty"`
}

// ClassSession is one concrete occurrence of a template. Location, room,
// instructor and capacity are copied from the template at generation time;
// later template edits never rewrite a session in place.
type ClassSession struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID     uint           `gorm:"not null;index" json:"organization_id"`
	TemplateID         uint           `gorm:"not null;index" json:"template_id"`
	StartsAt           time.Time      `gorm:"not null;index" json:"starts_at"`
	EndsAt             time.Time      `gorm:"not null" json:"ends_at"`
	Capacity           int            `gorm:"not null" json:"capacity"`
	LocationID         *uint          `json:"location_id"`
	Room               string         `json:"room"`
	InstructorID       *uint          `json:"instructor_id"`
	Status             SessionStatus  `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	CancellationReason *string        `json:"cancellation_reason"`

	// Relationships
	Roster []RosterEntry `gorm:"foreignKey:SessionID" json:"roster,omitempty"`
}

// RosterEntry is a customer's registration or attendance record for one session
type RosterEntry struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	OrganizationID uint         `gorm:"not null;index" json:"organization_id"`
	SessionID      uint         `gorm:"not null;uniqueIndex:idx_session_customer" json:"session_id"`
	CustomerID     uint         `gorm:"not null;uniqueIndex:idx_session_customer" json:"customer_id"`
	Status         RosterStatus `gorm:"type:varchar(20);default:'registered'" json:"status"`
	CheckedInAt    *time.Time   `json:"checked_in_at"`

	// Relationships
	Customer Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}
