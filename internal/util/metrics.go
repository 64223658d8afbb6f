package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of webhook events received by provider event type",
	}, []string{"event_type"})

	WebhookEventsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_skipped_total",
		Help: "Total number of webhook events with no mapped order status",
	})

	WebhookSignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Total number of webhook deliveries rejected for bad signatures",
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_updates_total",
		Help: "Total number of order status transitions applied",
	}, []string{"status"})

	OrderStatusUpdateFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_status_update_failures_total",
		Help: "Total number of failed order status update calls",
	})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of push notifications delivered",
	})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of failed per-token notification sends",
	}, []string{"reason"})

	DeviceTokensCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "device_tokens_cleaned_total",
		Help: "Total number of invalid device tokens deleted",
	})

	AccessTokenMintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_token_mints_total",
		Help: "Total number of OAuth access token mints by source",
	}, []string{"source"})

	FanoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notification_fanout_latency_seconds",
		Help:    "Latency of whole notification fan-out calls",
		Buckets: prometheus.DefBuckets,
	})

	BackgroundTaskFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "background_task_failures_total",
		Help: "Total number of failed supervised background tasks",
	}, []string{"task"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
