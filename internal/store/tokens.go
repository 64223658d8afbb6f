package store

import (
	"context"

	"order-notify/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetZipperUserIDs retrieves the ids of all fulfillment staff accounts.
func (s *Store) GetZipperUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT id FROM profiles WHERE role = 'zipper'")
	return ids, err
}

// GetActiveTokensForUsers retrieves every active device token registered
// to any of the given users.
func (s *Store) GetActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceToken, error) {
	if len(userIDs) == 0 {
		return []models.DeviceToken{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM fcm_tokens WHERE active = true AND user_id IN (?)", userIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var tokens []models.DeviceToken
	err = s.db.SelectContext(ctx, &tokens, query, args...)
	return tokens, err
}

// DeleteToken removes a device token the messaging API reported invalid.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM fcm_tokens WHERE token = $1", token)
	return err
}
