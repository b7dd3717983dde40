package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentApproved  PaymentStatus = "APPROVED"
	PaymentRejected  PaymentStatus = "REJECTED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentApproved || s == PaymentRejected || s == PaymentCancelled
}

// PaymentWindow is how long a payment stays confirmable after creation.
const PaymentWindow = 3 * time.Hour

// Payment is one purchase attempt. The ID comes from the payment gateway
// when available, otherwise it is generated locally. Records are never
// deleted, they stay as an audit trail.
type Payment struct {
	ID        string        `gorm:"primaryKey;size:255"`
	UserID    string        `gorm:"not null;index;size:255"`
	PlanID    PlanID        `gorm:"not null;size:50"`
	Status    PaymentStatus `gorm:"not null;default:'PENDING';size:20"`
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
}
