package service

import (
	"context"
	"fmt"
	"time"

	"order-notify/internal/models"
	"order-notify/internal/util"
	"order-notify/internal/worker"

	"go.uber.org/zap"
)

// ZipperDirectory resolves fulfillment-staff identities and their device
// tokens. Satisfied by *store.Store.
type ZipperDirectory interface {
	GetZipperUserIDs(ctx context.Context) ([]string, error)
	GetActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceToken, error)
}

// FanoutSender is the slice of FanoutService the notifier uses.
type FanoutSender interface {
	Send(ctx context.Context, req *models.PushNotification) (*models.FanoutResponse, error)
}

// ZipperNotifier tells fulfillment staff about orders newly entering the
// queue. Runs detached from the webhook request: the state transition is
// the durable source of truth, so a notification failure never surfaces
// in the webhook response.
type ZipperNotifier struct {
	directory ZipperDirectory
	fanout    FanoutSender
	bg        *worker.Background
	logger    *zap.Logger
}

// NewZipperNotifier creates a zipper notifier
func NewZipperNotifier(directory ZipperDirectory, fanout FanoutSender, bg *worker.Background) *ZipperNotifier {
	return &ZipperNotifier{
		directory: directory,
		fanout:    fanout,
		bg:        bg,
		logger:    util.GetLogger(),
	}
}

// NotifyOrderQueued schedules a staff notification for an order's first
// transition into queued. Errors are captured by the background runner.
func (z *ZipperNotifier) NotifyOrderQueued(orderID string) {
	z.bg.Run("notify_zippers", func(ctx context.Context) error {
		return z.notify(ctx, orderID)
	})
}

func (z *ZipperNotifier) notify(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "ZipperNotifier.notify")
	defer span.End()

	userIDs, err := z.directory.GetZipperUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch zipper user ids: %w", err)
	}
	if len(userIDs) == 0 {
		z.logger.Info("No zipper accounts registered, skipping notification",
			zap.String("order_id", orderID))
		return nil
	}

	tokens, err := z.directory.GetActiveTokensForUsers(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch zipper device tokens: %w", err)
	}
	if len(tokens) == 0 {
		z.logger.Info("No active zipper device tokens, skipping notification",
			zap.String("order_id", orderID))
		return nil
	}

	tokenValues := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenValues = append(tokenValues, t.Token)
	}

	resp, err := z.fanout.Send(ctx, &models.PushNotification{
		Tokens: tokenValues,
		Title:  "New Order Received",
		Body:   fmt.Sprintf("Order #%s has been paid and is ready to zip", shortOrderID(orderID)),
		Data: map[string]string{
			"type":      "new_order",
			"order_id":  orderID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		Priority: "high",
		Sound:    "default",
		Badge:    1,
	})
	if err != nil {
		return fmt.Errorf("zipper notification fan-out failed: %w", err)
	}

	z.logger.Info("Zipper notification sent",
		zap.String("order_id", orderID),
		zap.Int("recipients", resp.Summary.TotalTokens),
		zap.Int("delivered", resp.Summary.Successful),
		zap.Int("failed", resp.Summary.Failed))
	return nil
}

// shortOrderID truncates an order id for display in the notification body.
func shortOrderID(orderID string) string {
	if len(orderID) <= 8 {
		return orderID
	}
	return orderID[:8]
}
