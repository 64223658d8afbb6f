package models

import "time"

// Event types published to the order events topic
const (
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all published events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent is published after a non-skipped status
// transition driven by a payment provider event.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID         string `json:"order_id"`
	PreviousStatus  string `json:"previous_status,omitempty"`
	NewStatus       string `json:"new_status"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ProviderEvent   string `json:"provider_event"`
}
