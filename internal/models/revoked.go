package models

import "time"

// RevokedToken is one blacklist entry: a token revoked by logout before its
// natural expiry, kept until the sweep reclaims it. Presence here is an
// authorization decision; absence after ExpiresAt is plain garbage
// collection, because expiry is checked independently.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"size:512;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
