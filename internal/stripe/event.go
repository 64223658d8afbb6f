package stripe

import (
	"encoding/json"
	"fmt"

	"order-notify/internal/models"
)

// Event is the decoded provider envelope. Fields of the inner object are
// kept raw until identity resolution; provider payload shapes vary per
// event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// eventObject is the subset of data.object the pipeline reads. PaymentIntent
// may be a JSON string, an embedded object, or absent.
type eventObject struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// statusByEventType maps provider event types to target order statuses.
// Events absent from this table are acknowledged but produce no state
// change.
var statusByEventType = map[string]string{
	"payment_intent.succeeded":      models.OrderStatusQueued,
	"payment_intent.payment_failed": models.OrderStatusCancelled,
	"payment_intent.canceled":       models.OrderStatusCancelled,
	"charge.succeeded":              models.OrderStatusQueued,
	"charge.failed":                 models.OrderStatusCancelled,
	"charge.dispute.created":        models.OrderStatusDisputed,
	"charge.dispute.closed":         models.OrderStatusQueued,
	"invoice.payment_succeeded":     models.OrderStatusQueued,
	"invoice.payment_failed":        models.OrderStatusCancelled,
	"customer.subscription.deleted": models.OrderStatusCancelled,
}

// TargetStatus returns the order status a provider event type maps to.
func TargetStatus(eventType string) (string, bool) {
	status, ok := statusByEventType[eventType]
	return status, ok
}

// ParseEvent decodes a raw webhook body into an Event.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}
	if evt.Type == "" {
		return nil, fmt.Errorf("event envelope has no type")
	}
	return &evt, nil
}

// Identity carries the identifiers resolved from an event's object. Either,
// both, or neither may be present.
type Identity struct {
	PaymentIntentID string
	OrderID         string
}

// ResolveIdentity extracts the payment-intent id and order id from the
// event's object. Payment-intent resolution priority: a string
// payment_intent field, then the object itself being a payment intent,
// then an embedded payment_intent object. The order id comes from the
// object's metadata under order_id or orderId.
func (e *Event) ResolveIdentity() (Identity, error) {
	var id Identity

	if len(e.Data.Object) == 0 {
		return id, fmt.Errorf("event %s has no data object", e.Type)
	}

	var obj eventObject
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return id, fmt.Errorf("failed to parse event object: %w", err)
	}

	if len(obj.PaymentIntent) > 0 {
		var s string
		if err := json.Unmarshal(obj.PaymentIntent, &s); err == nil && s != "" {
			id.PaymentIntentID = s
		}
	}
	if id.PaymentIntentID == "" && obj.Object == "payment_intent" {
		id.PaymentIntentID = obj.ID
	}
	if id.PaymentIntentID == "" && len(obj.PaymentIntent) > 0 {
		var embedded struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(obj.PaymentIntent, &embedded); err == nil {
			id.PaymentIntentID = embedded.ID
		}
	}

	if v, ok := obj.Metadata["order_id"]; ok && v != "" {
		id.OrderID = v
	} else if v, ok := obj.Metadata["orderId"]; ok && v != "" {
		id.OrderID = v
	}

	return id, nil
}
