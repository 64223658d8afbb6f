package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-notify/internal/fcm"
	"order-notify/internal/models"
	"order-notify/internal/util"
	"order-notify/internal/worker"

	"go.uber.org/zap"
)

// Request validation errors map to a client error at the HTTP layer;
// ErrPushNotConfigured maps to a server error since no send is possible
// without credentials.
var (
	ErrNoTokens          = errors.New("fcm_tokens must be a non-empty array")
	ErrMissingContent    = errors.New("title and body are required")
	ErrPushNotConfigured = errors.New("push messaging is not configured")
)

// PushClient is the messaging API surface the fan-out needs. Satisfied by
// *fcm.Client.
type PushClient interface {
	MintAccessToken(ctx context.Context) (*fcm.AccessToken, error)
	Send(ctx context.Context, accessToken, deviceToken string, n *models.PushNotification) (string, error)
}

// TokenStore handles device-token lifecycle end.
type TokenStore interface {
	DeleteToken(ctx context.Context, token string) error
}

// NotificationLogStore persists per-call audit rows.
type NotificationLogStore interface {
	InsertNotificationLog(ctx context.Context, logRow *models.NotificationLog) error
}

// FanoutService sends one notification to many device tokens with
// per-token error isolation.
type FanoutService struct {
	client    PushClient
	tokens    TokenStore
	logs      NotificationLogStore
	bg        *worker.Background
	sendDelay time.Duration
	logger    *zap.Logger
}

// NewFanoutService creates a fan-out service. client may be nil when the
// service-account credentials are not configured; every Send then fails
// with ErrPushNotConfigured.
func NewFanoutService(
	client PushClient,
	tokens TokenStore,
	logs NotificationLogStore,
	bg *worker.Background,
	sendDelay time.Duration,
) *FanoutService {
	return &FanoutService{
		client:    client,
		tokens:    tokens,
		logs:      logs,
		bg:        bg,
		sendDelay: sendDelay,
		logger:    util.GetLogger(),
	}
}

// Send fans a notification out to every token in the request. Per-token
// sends run sequentially with a fixed delay to bound burst rate against
// the messaging API. The returned results match the input token array 1:1
// and in order; the call succeeds if it ran to completion, independent of
// individual token outcomes.
func (s *FanoutService) Send(ctx context.Context, req *models.PushNotification) (*models.FanoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "FanoutService.Send")
	defer span.End()

	start := time.Now()
	defer func() {
		util.FanoutLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.Tokens) == 0 {
		return nil, ErrNoTokens
	}
	if req.Title == "" || req.Body == "" {
		return nil, ErrMissingContent
	}
	if s.client == nil {
		return nil, ErrPushNotConfigured
	}

	accessToken, err := s.client.MintAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	results := make([]models.NotificationResult, 0, len(req.Tokens))
	var successful, failed, networkSends int

	for _, deviceToken := range req.Tokens {
		result := models.NotificationResult{Token: fcm.RedactToken(deviceToken)}

		if err := fcm.ValidateDeviceToken(deviceToken); err != nil {
			result.Error = err.Error()
			failed++
			util.NotificationsFailedTotal.WithLabelValues("invalid_format").Inc()
			results = append(results, result)
			continue
		}

		if networkSends > 0 && s.sendDelay > 0 {
			time.Sleep(s.sendDelay)
		}
		networkSends++

		messageID, err := s.client.Send(ctx, accessToken.Value, deviceToken, req)
		if err != nil {
			result.Error = err.Error()
			failed++
			util.NotificationsFailedTotal.WithLabelValues("send_error").Inc()
			s.logger.Warn("Notification send failed",
				zap.String("token", result.Token),
				zap.Error(err))

			if fcm.IsTokenInvalid(err) {
				s.cleanupToken(deviceToken)
			}
		} else {
			result.Success = true
			result.MessageID = messageID
			successful++
			util.NotificationsSentTotal.Inc()
		}

		results = append(results, result)
	}

	s.writeAuditLog(ctx, req, results, successful, failed)

	return &models.FanoutResponse{
		Success: true,
		Message: fmt.Sprintf("Processed %d tokens: %d delivered, %d failed", len(req.Tokens), successful, failed),
		Summary: models.FanoutSummary{
			TotalTokens: len(req.Tokens),
			Successful:  successful,
			Failed:      failed,
		},
		Results: results,
	}, nil
}

// cleanupToken deletes a token the messaging API reported dead. Best
// effort: a failed delete is logged, never escalated.
func (s *FanoutService) cleanupToken(deviceToken string) {
	if s.tokens == nil {
		return
	}

	redacted := fcm.RedactToken(deviceToken)
	s.bg.Run("token_cleanup", func(ctx context.Context) error {
		if err := s.tokens.DeleteToken(ctx, deviceToken); err != nil {
			return fmt.Errorf("failed to delete invalid token %s: %w", redacted, err)
		}
		util.DeviceTokensCleanedTotal.Inc()
		s.logger.Info("Deleted invalid device token", zap.String("token", redacted))
		return nil
	})
}

// writeAuditLog persists the per-call summary row. A logging failure must
// not fail the overall call.
func (s *FanoutService) writeAuditLog(ctx context.Context, req *models.PushNotification, results []models.NotificationResult, successful, failed int) {
	if s.logs == nil {
		return
	}

	notifType := req.Data["type"]
	if notifType == "" {
		notifType = "general"
	}

	dataJSON, _ := json.Marshal(req.Data)
	resultsJSON, _ := json.Marshal(results)

	logRow := &models.NotificationLog{
		Title:          req.Title,
		Body:           req.Body,
		Type:           notifType,
		Data:           string(dataJSON),
		SentAt:         time.Now(),
		RecipientCount: len(req.Tokens),
		SuccessCount:   successful,
		FailureCount:   failed,
		Results:        string(resultsJSON),
	}

	if err := s.logs.InsertNotificationLog(ctx, logRow); err != nil {
		s.logger.Warn("Failed to write notification audit log", zap.Error(err))
	}
}
