package store

import (
	"context"

	"order-notify/internal/models"
)

// InsertNotificationLog persists the audit row summarizing one fan-out
// call.
func (s *Store) InsertNotificationLog(ctx context.Context, logRow *models.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (title, body, type, data, sent_at, recipient_count, success_count, failure_count, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return s.db.GetContext(ctx, &logRow.ID, query,
		logRow.Title, logRow.Body, logRow.Type, logRow.Data, logRow.SentAt,
		logRow.RecipientCount, logRow.SuccessCount, logRow.FailureCount, logRow.Results)
}
