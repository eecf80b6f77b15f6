package store

import (
	"context"
	"fmt"

	"authgate/internal/models"

	"gorm.io/gorm/clause"
)

// GrantPrivilege adds a scope to a user. Granting an already-held scope is
// a no-op, backed by the (user_id, scope) unique index.
func (s *Store) GrantPrivilege(ctx context.Context, userID uint, scope string) error {
	priv := models.Privilege{UserID: userID, Scope: scope}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&priv).Error
	if err != nil {
		return fmt.Errorf("grant privilege: %w", err)
	}
	return nil
}

// RevokePrivilege removes a scope from a user. Missing grants revoke to
// the same end state, so no rows affected is not an error.
func (s *Store) RevokePrivilege(ctx context.Context, userID uint, scope string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND scope = ?", userID, scope).
		Delete(&models.Privilege{}).Error
	if err != nil {
		return fmt.Errorf("revoke privilege: %w", err)
	}
	return nil
}
