package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordSession upserts the single active-session row for a user: one
// atomic INSERT ... ON CONFLICT (user_id) DO UPDATE, so concurrent logins
// for the same user race down to last-write-wins instead of duplicate rows.
func (s *Store) RecordSession(ctx context.Context, userID uint, client string, expiresAt time.Time) error {
	sess := models.ActiveSession{
		UserID:    userID,
		Client:    client,
		ExpiresAt: expiresAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"client", "expires_at", "updated_at"}),
		}).
		Create(&sess).Error
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// SessionByUser reads the active-session row for a user. Read-only: the
// binding check must never create or mutate a row.
func (s *Store) SessionByUser(ctx context.Context, userID uint) (*models.ActiveSession, error) {
	var sess models.ActiveSession
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session for user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sess, nil
}
