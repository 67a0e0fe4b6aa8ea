package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
)

// TimeoutError reports an operation abandoned at its deadline. It matches
// context.DeadlineExceeded under errors.Is.
type TimeoutError struct {
	Operation string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %v", e.Operation, e.Limit)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// WithTimeout runs fn under a context cancelled after timeout and stops
// waiting for it at the deadline; fn keeps running until it observes the
// cancellation. A non-positive timeout runs fn unbounded. Cancellation of
// ctx itself is returned as ctx.Err(), wrapped with the operation name.
func WithTimeout(ctx context.Context, timeout time.Duration, operation string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		logger.FromContext(ctx).Warn("operation timed out",
			"component", "resilience",
			"operation", operation,
			"limit", timeout,
			"elapsed", time.Since(start),
		)
		return &TimeoutError{Operation: operation, Limit: timeout}
	}
}
