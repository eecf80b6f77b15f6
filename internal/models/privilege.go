package models

// Privilege grants one scope string to one user. Rows are created and
// removed only through superuser-held endpoints.
type Privilege struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"index;not null;uniqueIndex:idx_user_scope"`
	Scope  string `gorm:"size:64;not null;uniqueIndex:idx_user_scope"`
}
