package store

import (
	"errors"

	"gorm.io/gorm"
)

// Store is the credential store: durable records for users, privileges,
// active sessions and revoked tokens, reached through one injected gorm
// handle. All methods are context-first; the context bounds the store
// round-trip.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Sentinel results callers branch on. Anything else coming out of a Store
// method is a transport/engine failure and should be treated as the store
// being unavailable, never as a negative lookup.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)
