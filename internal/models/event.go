package models

import (
	"time"
)

// Event records one bot interaction (command, callback or plain message).
type Event struct {
	ID        string `gorm:"primaryKey;size:255"`
	UserID    string `gorm:"not null;index;size:255"`
	Type      string `gorm:"not null;size:100"`
	CreatedAt time.Time
}
