package models

import "time"

// PaymentEvent is a record of a payment reported by the billing provider.
// Events are listed, never created or mutated by this service's API.
type PaymentEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	CustomerID     *uint     `gorm:"index" json:"customer_id"`
	Type           string    `gorm:"type:varchar(40);not null" json:"type"` // e.g. payment.succeeded, refund.issued
	AmountCents    int       `gorm:"not null" json:"amount_cents"`
	Currency       string    `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	OccurredAt     time.Time `gorm:"not null;index" json:"occurred_at"`
	ExternalRef    string    `gorm:"index" json:"external_ref"`
}
