package store

import (
	"context"
	"fmt"
	"time"

	"authgate/internal/models"

	"gorm.io/gorm/clause"
)

// RevokeToken inserts a blacklist row for the token. Insert-or-ignore:
// revoking the same token twice is a no-op, which gives logout its
// idempotency for free.
func (s *Store) RevokeToken(ctx context.Context, token string, expiresAt time.Time) error {
	row := models.RevokedToken{Token: token, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked is a point lookup on the blacklist.
func (s *Store) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return count > 0, nil
}

// SweepRevoked deletes every blacklist row whose expiry has passed, as one
// atomic statement, and returns how many rows went. The predicate is purely
// time-based, so a concurrent revoke of a still-unexpired token can never
// be caught by it, and two overlapping sweeps commute.
func (s *Store) SweepRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep revoked tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
