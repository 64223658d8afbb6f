package models

import "time"

// Order statuses written by the payment pipeline. "pending" exists only
// before payment and is never a target of a webhook transition.
const (
	OrderStatusPending    = "pending"
	OrderStatusQueued     = "queued"
	OrderStatusInProgress = "in_progress"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusDisputed   = "disputed"
)

// StatusTransitionResult is returned by the order state updater RPCs.
// PreviousStatus is empty when the order had no recorded status; callers
// compare it against the new status to detect first-time transitions.
type StatusTransitionResult struct {
	OrderID        string `db:"order_id" json:"order_id"`
	PreviousStatus string `db:"previous_status" json:"previous_status,omitempty"`
	NewStatus      string `db:"new_status" json:"new_status"`
	Skipped        bool   `db:"skipped" json:"skipped"`
}

// DeviceToken is a push-messaging registration owned by one user.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	DeviceID  string    `db:"device_id" json:"device_id,omitempty"`
	Platform  string    `db:"platform" json:"platform,omitempty"`
	Active    bool      `db:"active" json:"active"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PushNotification is a per-call fan-out request. It is never persisted;
// only the audit summary is.
type PushNotification struct {
	Tokens   []string          `json:"fcm_tokens"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    int               `json:"badge,omitempty"`
}

// NotificationResult is the per-token outcome. Results always match the
// input token array 1:1 and in order. Token is redacted before leaving
// the process.
type NotificationResult struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FanoutSummary aggregates one fan-out call.
type FanoutSummary struct {
	TotalTokens int `json:"total_tokens"`
	Successful  int `json:"successful"`
	Failed      int `json:"failed"`
}

// FanoutResponse is returned once every token has been processed. The call
// is successful if it ran to completion, independent of individual token
// outcomes.
type FanoutResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Summary FanoutSummary        `json:"summary"`
	Results []NotificationResult `json:"results"`
}

// NotificationLog is the audit row persisted per fan-out call.
type NotificationLog struct {
	ID             int64     `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Body           string    `db:"body" json:"body"`
	Type           string    `db:"type" json:"type"`
	Data           string    `db:"data" json:"data"`
	SentAt         time.Time `db:"sent_at" json:"sent_at"`
	RecipientCount int       `db:"recipient_count" json:"recipient_count"`
	SuccessCount   int       `db:"success_count" json:"success_count"`
	FailureCount   int       `db:"failure_count" json:"failure_count"`
	Results        string    `db:"results" json:"results"`
}
