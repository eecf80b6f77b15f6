package models

import "time"

// User represents an authenticatable principal.
//
// Username carries NOCASE collation so the unique index enforces the same
// case-insensitive uniqueness the lookups use; concurrent case-variant
// registrations collapse onto the constraint instead of racing past a
// pre-insert check.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"type:TEXT COLLATE NOCASE;uniqueIndex;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	Email        string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255;not null"`
	IsSuperuser  bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Privileges []Privilege `gorm:"constraint:OnDelete:CASCADE"`
}

// HasPrivilege reports whether the user holds the given scope string.
// The superuser bypass is decided by the auth package, not here.
func (u *User) HasPrivilege(scope string) bool {
	for _, p := range u.Privileges {
		if p.Scope == scope {
			return true
		}
	}
	return false
}
