package models

import (
	"time"
)

// Subscription is one grant of access created from exactly one approved
// payment. EndDate is computed once at creation from the plan duration and
// never recomputed; changing the catalog later does not move it.
type Subscription struct {
	ID        string `gorm:"primaryKey;size:255"`
	UserID    string `gorm:"not null;index;size:255"`
	PaymentID string `gorm:"not null;uniqueIndex;size:255"`
	PlanID    PlanID `gorm:"not null;size:50"`
	StartDate time.Time
	EndDate   time.Time
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
