package fcm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"order-notify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{
			"name": "projects/test-project/messages/0:12345",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), nil)
	client.sendBaseURL = srv.URL

	msgID, err := client.Send(context.Background(), "ya29.bearer", validToken(), &models.PushNotification{
		Title: "New Order",
		Body:  "Order #abc12345 is ready",
		Data:  map[string]string{"type": "new_order", "order_id": "abc"},
		Badge: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/test-project/messages/0:12345", msgID)
	assert.Equal(t, "Bearer ya29.bearer", gotAuth)

	msg := gotBody["message"].(map[string]interface{})
	assert.Equal(t, validToken(), msg["token"])
	notif := msg["notification"].(map[string]interface{})
	assert.Equal(t, "New Order", notif["title"])
	android := msg["android"].(map[string]interface{})
	assert.Equal(t, "HIGH", android["priority"])
	apns := msg["apns"].(map[string]interface{})
	headers := apns["headers"].(map[string]interface{})
	assert.Equal(t, "10", headers["apns-priority"])
}

func TestSendNormalPriority(t *testing.T) {
	msg := buildMessage(validToken(), &models.PushNotification{
		Title:    "t",
		Body:     "b",
		Priority: "normal",
	})
	assert.Equal(t, "NORMAL", msg.Android.Priority)
	assert.Equal(t, "5", msg.APNS.Headers["apns-priority"])
	assert.Equal(t, "default", msg.Android.Notification.Sound)
}

func TestSendErrorBodyPreserved(t *testing.T) {
	errorBody := `{"error":{"code":500,"message":"Internal error encountered.","status":"INTERNAL"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(errorBody))
	}))
	defer srv.Close()

	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), nil)
	client.sendBaseURL = srv.URL

	_, err := client.Send(context.Background(), "ya29.bearer", validToken(), &models.PushNotification{Title: "t", Body: "b"})
	require.Error(t, err)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, errorBody, sendErr.Body)
	assert.False(t, sendErr.TokenInvalid())
}

func TestSendUnregisteredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{
			"error": {
				"code": 404,
				"message": "Requested entity was not found.",
				"status": "NOT_FOUND",
				"details": [{
					"@type": "type.googleapis.com/google.firebase.fcm.v1.FcmError",
					"errorCode": "UNREGISTERED"
				}]
			}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), nil)
	client.sendBaseURL = srv.URL

	_, err := client.Send(context.Background(), "ya29.bearer", validToken(), &models.PushNotification{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.True(t, IsTokenInvalid(err))
}

func TestIsTokenInvalidByMessage(t *testing.T) {
	err := &SendError{StatusCode: 400, Body: `{"error":{"message":"The registration token is not a valid FCM registration token"}}`}
	assert.True(t, err.TokenInvalid())

	assert.False(t, IsTokenInvalid(context.DeadlineExceeded))
	assert.False(t, IsTokenInvalid(nil))
}

func TestSendMissingMessageName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), nil)
	client.sendBaseURL = srv.URL

	_, err := client.Send(context.Background(), "ya29.bearer", validToken(), &models.PushNotification{Title: "t", Body: "b"})
	assert.Error(t, err)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Credentials{ClientEmail: "svc@test.iam"}, time.Second, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key")
	assert.Contains(t, err.Error(), "project_id")
}
