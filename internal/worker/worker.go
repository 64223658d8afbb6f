package worker

import (
	"context"
	"sync"
	"time"

	"order-notify/internal/util"

	"go.uber.org/zap"
)

// Background runs supervised fire-and-forget tasks: staff notification,
// dead-token cleanup, event publishing. Task failures are captured and
// logged, never propagated to the caller's result.
type Background struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger
}

// NewBackground creates a background task runner. Each task gets its own
// context bounded by timeout, detached from the originating request.
func NewBackground(timeout time.Duration) *Background {
	return &Background{
		timeout: timeout,
		logger:  util.GetLogger(),
	}
}

// Run executes fn on its own goroutine. Panics are recovered; errors and
// panics surface only through logs and the failure metric.
func (b *Background) Run(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				util.BackgroundTaskFailuresTotal.WithLabelValues(name).Inc()
				b.logger.Error("Background task panicked",
					zap.String("task", name),
					zap.Any("panic", r))
			}
		}()

		if err := fn(ctx); err != nil {
			util.BackgroundTaskFailuresTotal.WithLabelValues(name).Inc()
			b.logger.Error("Background task failed",
				zap.String("task", name),
				zap.Error(err))
		}
	}()
}

// Shutdown waits for in-flight tasks to finish, up to the context
// deadline.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
