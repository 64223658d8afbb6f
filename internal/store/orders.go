package store

import (
	"context"
	"database/sql"
	"fmt"

	"order-notify/internal/models"
)

// The two stored procedures below own the transactional semantics of a
// status transition (status write + inventory adjustment) and are safe
// under concurrent invocation for the same order. This service only
// adapts their row shape; it holds no lock of its own.

// UpdateStatusByPaymentIntent transitions the order identified by a
// payment-intent id. Returns nil when no order matches.
func (s *Store) UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID, newStatus string) (*models.StatusTransitionResult, error) {
	var result models.StatusTransitionResult
	err := s.db.GetContext(ctx, &result,
		"SELECT order_id, previous_status, new_status, skipped FROM update_order_status_and_inventory($1, $2)",
		paymentIntentID, newStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update_order_status_and_inventory failed: %w", err)
	}
	return &result, nil
}

// UpdateStatusByOrderID transitions an order directly by its id. The
// payment-intent id, when known, is recorded on the order for later
// reconciliation. Returns nil when no order matches.
func (s *Store) UpdateStatusByOrderID(ctx context.Context, orderID, newStatus, paymentIntentID string) (*models.StatusTransitionResult, error) {
	var result models.StatusTransitionResult
	err := s.db.GetContext(ctx, &result,
		"SELECT order_id, previous_status, new_status, skipped FROM update_order_status_and_inventory_by_order_id($1, $2, NULLIF($3, ''))",
		orderID, newStatus, paymentIntentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update_order_status_and_inventory_by_order_id failed: %w", err)
	}
	return &result, nil
}
