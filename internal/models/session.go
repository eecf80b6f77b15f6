package models

import "time"

// ActiveSession records the last successful login per user: which client
// address authenticated and when that token expires. At most one row per
// user (unique index); logins overwrite it in place. The row is never
// consulted for expiry decisions, only for client binding.
type ActiveSession struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex;not null"`
	Client    string    `gorm:"size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
