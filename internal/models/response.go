package models

import (
	"time"
)

// Response is a canned bot reply, edited by operators directly in the store.
type Response struct {
	Key       string `gorm:"primaryKey;size:100"`
	Text      string `gorm:"type:text"`
	UpdatedAt time.Time
}
