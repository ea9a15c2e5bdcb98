package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when AwaitWithTimeout exceeds its duration.
var ErrTimeout = errors.New("await timed out")

// ExecFuture represents the result of a background task that only returns an
// error. The zero value is not usable; construct with Exec.
type ExecFuture struct {
	err  error
	done chan struct{}
}

// Await blocks until the task completes and returns its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for the task to complete up to timeout.
// Returns ErrTimeout if the task is still running when the timeout fires;
// the task itself keeps running.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// IsComplete reports whether the task has finished, without blocking.
func (f *ExecFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec runs fn(ctx, param) in a new goroutine and returns a future for its
// completion. A pre-canceled context short-circuits without invoking fn.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}
