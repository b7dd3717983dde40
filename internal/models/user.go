package models

import (
	"time"
)

// User is created on first interaction with the bot. CurrentSubscriptionID
// points at the most recent subscription, active or not; older subscriptions
// stay in the store but are no longer referenced.
type User struct {
	ID                    string `gorm:"primaryKey;size:255"`
	Username              string `gorm:"size:255"`
	FirstName             string `gorm:"size:255"`
	CurrentSubscriptionID *string `gorm:"size:255"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
