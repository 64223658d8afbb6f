package service

import (
	"context"
	"time"

	"order-notify/internal/broker"
	"order-notify/internal/models"
	"order-notify/internal/stripe"
	"order-notify/internal/util"
	"order-notify/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStateUpdater is the external idempotent transition contract. Both
// operations are safe to call repeatedly with the same arguments and
// report the status prior to the call. Satisfied by *store.Store.
type OrderStateUpdater interface {
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID, newStatus string) (*models.StatusTransitionResult, error)
	UpdateStatusByOrderID(ctx context.Context, orderID, newStatus, paymentIntentID string) (*models.StatusTransitionResult, error)
}

// OrderNotifier is triggered on first transitions into queued.
type OrderNotifier interface {
	NotifyOrderQueued(orderID string)
}

// ProcessResult is the business outcome of one webhook delivery. The HTTP
// layer encodes it into the response body; business errors stay at 200 so
// the provider does not retry-storm on errors retries cannot fix.
type ProcessResult struct {
	OK      bool                           `json:"ok"`
	Skipped bool                           `json:"skipped,omitempty"`
	Error   string                         `json:"error,omitempty"`
	Result  *models.StatusTransitionResult `json:"result,omitempty"`
}

// WebhookProcessor drives the pipeline for one verified provider event:
// classify, resolve identity, apply the idempotent transition, and kick
// off downstream effects for genuine first-time moves into queued.
type WebhookProcessor struct {
	updater   OrderStateUpdater
	notifier  OrderNotifier
	publisher *broker.EventPublisher
	bg        *worker.Background
	logger    *zap.Logger
}

// NewWebhookProcessor creates a webhook processor. notifier and publisher
// may be nil; both are best-effort side effects.
func NewWebhookProcessor(
	updater OrderStateUpdater,
	notifier OrderNotifier,
	publisher *broker.EventPublisher,
	bg *worker.Background,
) *WebhookProcessor {
	return &WebhookProcessor{
		updater:   updater,
		notifier:  notifier,
		publisher: publisher,
		bg:        bg,
		logger:    util.GetLogger(),
	}
}

// Process applies one decoded event. Concurrent deliveries for the same
// order are expected; correctness relies on the updater's idempotency and
// the previous-status comparison, not on any lock held here.
func (p *WebhookProcessor) Process(ctx context.Context, evt *stripe.Event) ProcessResult {
	ctx, span := util.StartSpan(ctx, "WebhookProcessor.Process")
	defer span.End()

	targetStatus, mapped := stripe.TargetStatus(evt.Type)
	if !mapped {
		util.WebhookEventsSkippedTotal.Inc()
		p.logger.Debug("Ignoring unmapped event type", zap.String("type", evt.Type))
		return ProcessResult{OK: true, Skipped: true}
	}
	util.WebhookEventsTotal.WithLabelValues(evt.Type).Inc()

	identity, err := evt.ResolveIdentity()
	if err != nil {
		p.logger.Warn("Failed to resolve event identity",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type),
			zap.Error(err))
		return ProcessResult{Error: err.Error()}
	}

	if identity.PaymentIntentID == "" && identity.OrderID == "" {
		p.logger.Warn("Event carries neither payment intent nor order id",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type))
		return ProcessResult{Error: "event has no payment_intent or order_id"}
	}

	result, err := p.applyTransition(ctx, identity, targetStatus)
	if err != nil {
		util.OrderStatusUpdateFailuresTotal.Inc()
		p.logger.Error("Order status update failed",
			zap.String("event_id", evt.ID),
			zap.String("payment_intent_id", identity.PaymentIntentID),
			zap.String("order_id", identity.OrderID),
			zap.Error(err))
		return ProcessResult{Error: err.Error()}
	}
	if result == nil {
		p.logger.Warn("No order matched event identifiers",
			zap.String("event_id", evt.ID),
			zap.String("payment_intent_id", identity.PaymentIntentID),
			zap.String("order_id", identity.OrderID))
		return ProcessResult{Error: "no matching order for event"}
	}

	if !result.Skipped {
		util.OrderStatusUpdatesTotal.WithLabelValues(result.NewStatus).Inc()
		p.publishStatusChanged(evt, identity, result)

		// strict inequality: an order already queued must not re-notify
		if result.NewStatus == models.OrderStatusQueued &&
			result.PreviousStatus != models.OrderStatusQueued &&
			p.notifier != nil {
			p.notifier.NotifyOrderQueued(result.OrderID)
		}
	}

	return ProcessResult{OK: true, Result: result}
}

// applyTransition runs the two-step update protocol: keyed by payment
// intent first, falling back to the order id when the first call matched
// nothing or was explicitly skipped. Some provider event shapes only
// reliably carry one of the two identifiers.
func (p *WebhookProcessor) applyTransition(ctx context.Context, identity stripe.Identity, targetStatus string) (*models.StatusTransitionResult, error) {
	if identity.PaymentIntentID == "" {
		return p.updater.UpdateStatusByOrderID(ctx, identity.OrderID, targetStatus, "")
	}

	result, err := p.updater.UpdateStatusByPaymentIntent(ctx, identity.PaymentIntentID, targetStatus)
	if err != nil {
		return nil, err
	}

	if (result == nil || result.Skipped) && identity.OrderID != "" {
		fallback, err := p.updater.UpdateStatusByOrderID(ctx, identity.OrderID, targetStatus, identity.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if fallback != nil {
			return fallback, nil
		}
	}

	return result, nil
}

// publishStatusChanged emits the domain event for downstream consumers.
// Best effort: publish failures never affect the webhook response.
func (p *WebhookProcessor) publishStatusChanged(evt *stripe.Event, identity stripe.Identity, result *models.StatusTransitionResult) {
	if p.publisher == nil {
		return
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:         result.OrderID,
		PreviousStatus:  result.PreviousStatus,
		NewStatus:       result.NewStatus,
		PaymentIntentID: identity.PaymentIntentID,
		ProviderEvent:   evt.Type,
	}

	p.bg.Run("publish_status_changed", func(ctx context.Context) error {
		return p.publisher.PublishOrderStatusChanged(ctx, event)
	})
}
