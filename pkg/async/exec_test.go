package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorium/clientkit/pkg/async"
)

func TestExec(t *testing.T) {
	t.Parallel()

	t.Run("await returns task error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("write failed")
		future := async.Exec(context.Background(), "blob", func(ctx context.Context, s string) error {
			return boom
		})
		assert.ErrorIs(t, future.Await(), boom)
	})

	t.Run("await returns nil on success", func(t *testing.T) {
		t.Parallel()

		var got string
		future := async.Exec(context.Background(), "blob", func(ctx context.Context, s string) error {
			got = s
			return nil
		})
		require.NoError(t, future.Await())
		assert.Equal(t, "blob", got)
	})

	t.Run("pre-canceled context skips the task", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		future := async.Exec(ctx, 0, func(ctx context.Context, _ int) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, future.Await(), context.Canceled)
		assert.False(t, ran)
	})

	t.Run("await with timeout fires on slow task", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		future := async.Exec(context.Background(), 0, func(ctx context.Context, _ int) error {
			<-release
			return nil
		})

		assert.ErrorIs(t, future.AwaitWithTimeout(10*time.Millisecond), async.ErrTimeout)
		assert.False(t, future.IsComplete())

		close(release)
		require.NoError(t, future.Await())
		assert.True(t, future.IsComplete())
	})
}
