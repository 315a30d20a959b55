package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

type outcome[T any] struct {
	val T
	err error
}

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. If fn does not return in time the error wraps both
// context.DeadlineExceeded and apperrors.ErrTimeout; fn keeps running until
// it notices the cancelled context and its result is discarded.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome[T]{v, err}
	}()
	var zero T
	select {
	case o := <-done:
		return o.val, o.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
	}
}
