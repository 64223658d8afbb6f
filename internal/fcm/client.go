package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"order-notify/internal/models"
	"order-notify/internal/util"

	"go.uber.org/zap"
)

const defaultSendBaseURL = "https://fcm.googleapis.com"

// Client talks to the FCM HTTP v1 API. Endpoint URLs are fields so tests
// can point them at a local server.
type Client struct {
	creds       Credentials
	httpClient  *http.Client
	tokenURL    string
	sendBaseURL string
	cache       TokenCache
	logger      *zap.Logger
}

// NewClient creates a messaging client. Returns an error when the
// credential triple is incomplete; the caller decides whether that is
// fatal (it is not for the webhook path, only for push).
func NewClient(creds Credentials, timeout time.Duration, cache TokenCache) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		creds:       creds,
		httpClient:  &http.Client{Timeout: timeout},
		tokenURL:    googleTokenURL,
		sendBaseURL: defaultSendBaseURL,
		cache:       cache,
		logger:      util.GetLogger(),
	}, nil
}

// message is the FCM v1 send envelope with platform-specific framing for
// Android and APNs.
type message struct {
	Token        string            `json:"token"`
	Notification *notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *androidConfig    `json:"android,omitempty"`
	APNS         *apnsConfig       `json:"apns,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority     string               `json:"priority,omitempty"`
	Notification *androidNotification `json:"notification,omitempty"`
}

type androidNotification struct {
	Sound string `json:"sound,omitempty"`
}

type apnsConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
	Payload *apnsPayload      `json:"payload,omitempty"`
}

type apnsPayload struct {
	Aps apsDictionary `json:"aps"`
}

type apsDictionary struct {
	Sound string `json:"sound,omitempty"`
	Badge int    `json:"badge,omitempty"`
}

// buildMessage frames one notification for one device token.
func buildMessage(token string, n *models.PushNotification) *message {
	sound := n.Sound
	if sound == "" {
		sound = "default"
	}

	androidPriority := "NORMAL"
	apnsPriority := "5"
	if n.Priority == "high" || n.Priority == "" {
		androidPriority = "HIGH"
		apnsPriority = "10"
	}

	return &message{
		Token:        token,
		Notification: &notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Android: &androidConfig{
			Priority:     androidPriority,
			Notification: &androidNotification{Sound: sound},
		},
		APNS: &apnsConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &apnsPayload{
				Aps: apsDictionary{Sound: sound, Badge: n.Badge},
			},
		},
	}
}

// SendError is a per-token delivery failure reported by the messaging API.
// The response body is preserved verbatim as the failure reason.
type SendError struct {
	StatusCode int
	ErrorCode  string
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("fcm send failed: status=%d body=%s", e.StatusCode, e.Body)
}

// TokenInvalid reports whether the failure means the registration token is
// no longer valid and should be deleted.
func (e *SendError) TokenInvalid() bool {
	if e.ErrorCode == "UNREGISTERED" {
		return true
	}
	lower := strings.ToLower(e.Body)
	return strings.Contains(lower, "registration token is not") ||
		strings.Contains(lower, "registration-token-not-registered") ||
		strings.Contains(lower, "requested entity was not found")
}

// IsTokenInvalid reports whether err marks a dead registration token.
func IsTokenInvalid(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.TokenInvalid()
}

// Send delivers one notification to one device token using a previously
// minted bearer token. Returns the provider message id on success.
func (c *Client) Send(ctx context.Context, accessToken string, deviceToken string, n *models.PushNotification) (string, error) {
	payload, err := json.Marshal(struct {
		Message *message `json:"message"`
	}{buildMessage(deviceToken, n)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	sendURL := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.sendBaseURL, c.creds.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fcm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read fcm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		sendErr := &SendError{StatusCode: resp.StatusCode, Body: string(body)}
		var parsed struct {
			Error struct {
				Details []struct {
					ErrorCode string `json:"errorCode"`
				} `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &parsed) == nil {
			for _, d := range parsed.Error.Details {
				if d.ErrorCode != "" {
					sendErr.ErrorCode = d.ErrorCode
					break
				}
			}
		}
		return "", sendErr
	}

	// a message identifier in the body means the send was accepted
	var success struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &success); err != nil || success.Name == "" {
		return "", fmt.Errorf("fcm response missing message name: %s", body)
	}

	c.logger.Debug("FCM message sent",
		zap.String("token", RedactToken(deviceToken)),
		zap.String("message_id", success.Name))
	return success.Name, nil
}
