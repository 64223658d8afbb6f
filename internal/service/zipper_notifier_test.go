package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"order-notify/internal/models"
	"order-notify/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	userIDs  []string
	tokens   []models.DeviceToken
	idsErr   error
	toksErr  error
	askedFor []string
}

func (f *fakeDirectory) GetZipperUserIDs(ctx context.Context) ([]string, error) {
	return f.userIDs, f.idsErr
}

func (f *fakeDirectory) GetActiveTokensForUsers(ctx context.Context, userIDs []string) ([]models.DeviceToken, error) {
	f.askedFor = userIDs
	return f.tokens, f.toksErr
}

type fakeFanout struct {
	mu   sync.Mutex
	reqs []*models.PushNotification
	err  error
}

func (f *fakeFanout) Send(ctx context.Context, req *models.PushNotification) (*models.FanoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.FanoutResponse{
		Success: true,
		Summary: models.FanoutSummary{TotalTokens: len(req.Tokens), Successful: len(req.Tokens)},
	}, nil
}

func TestNotifyOrderQueued(t *testing.T) {
	dir := &fakeDirectory{
		userIDs: []string{"u1", "u2"},
		tokens: []models.DeviceToken{
			{UserID: "u1", Token: goodToken("1")},
			{UserID: "u2", Token: goodToken("2")},
		},
	}
	fan := &fakeFanout{}
	bg := worker.NewBackground(time.Second)
	z := NewZipperNotifier(dir, fan, bg)

	z.NotifyOrderQueued("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	require.NoError(t, bg.Shutdown(context.Background()))

	assert.Equal(t, []string{"u1", "u2"}, dir.askedFor)
	require.Len(t, fan.reqs, 1)

	req := fan.reqs[0]
	assert.Equal(t, []string{goodToken("1"), goodToken("2")}, req.Tokens)
	assert.Equal(t, "New Order Received", req.Title)
	assert.Contains(t, req.Body, "#0f1e2d3c")
	assert.Equal(t, "new_order", req.Data["type"])
	assert.Equal(t, "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0", req.Data["order_id"])
	assert.NotEmpty(t, req.Data["timestamp"])
	assert.Equal(t, "high", req.Priority)
}

func TestNotifyOrderQueuedNoStaff(t *testing.T) {
	fan := &fakeFanout{}
	bg := worker.NewBackground(time.Second)
	z := NewZipperNotifier(&fakeDirectory{}, fan, bg)

	z.NotifyOrderQueued("ord-1")
	require.NoError(t, bg.Shutdown(context.Background()))

	assert.Empty(t, fan.reqs)
}

func TestNotifyOrderQueuedNoTokens(t *testing.T) {
	fan := &fakeFanout{}
	bg := worker.NewBackground(time.Second)
	z := NewZipperNotifier(&fakeDirectory{userIDs: []string{"u1"}}, fan, bg)

	z.NotifyOrderQueued("ord-1")
	require.NoError(t, bg.Shutdown(context.Background()))

	assert.Empty(t, fan.reqs)
}

func TestNotifyOrderQueuedFanoutFailureSwallowed(t *testing.T) {
	dir := &fakeDirectory{
		userIDs: []string{"u1"},
		tokens:  []models.DeviceToken{{UserID: "u1", Token: goodToken("1")}},
	}
	fan := &fakeFanout{err: fmt.Errorf("messaging down")}
	bg := worker.NewBackground(time.Second)
	z := NewZipperNotifier(dir, fan, bg)

	// must not panic or propagate; the failure lives in logs/metrics only
	z.NotifyOrderQueued("ord-1")
	require.NoError(t, bg.Shutdown(context.Background()))
	assert.Len(t, fan.reqs, 1)
}

func TestShortOrderID(t *testing.T) {
	assert.Equal(t, "abc", shortOrderID("abc"))
	assert.Equal(t, "12345678", shortOrderID("1234567890"))
}
