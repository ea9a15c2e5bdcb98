package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorium/clientkit/core/event"
)

func receiveOne(t *testing.T, sub *event.Subscription) event.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return event.Event{}
	}
}

func TestBus(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all subscribers", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		defer bus.Close()

		first := bus.Subscribe()
		second := bus.Subscribe()

		require.NoError(t, bus.Publish(event.New(event.SignedOut, "refresh_failed")))

		for _, sub := range []*event.Subscription{first, second} {
			ev := receiveOne(t, sub)
			assert.Equal(t, event.SignedOut, ev.Name)
			assert.Equal(t, "refresh_failed", ev.Reason)
			assert.NotEmpty(t, ev.ID)
			assert.False(t, ev.CreatedAt.IsZero())
		}
	})

	t.Run("canceled subscriber stops receiving", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		defer bus.Close()

		sub := bus.Subscribe()
		sub.Cancel()
		sub.Cancel() // idempotent

		require.NoError(t, bus.Publish(event.New(event.SignedIn, "")))

		_, ok := <-sub.C
		assert.False(t, ok)
	})

	t.Run("full subscriber buffer drops instead of blocking", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		defer bus.Close()

		sub := bus.Subscribe()
		for range event.DefaultSubscriberBuffer + 3 {
			require.NoError(t, bus.Publish(event.New(event.SessionRefreshed, "")))
		}

		received := 0
		for {
			select {
			case <-sub.C:
				received++
				continue
			default:
			}
			break
		}
		assert.Equal(t, event.DefaultSubscriberBuffer, received)
	})

	t.Run("publish after close fails", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		sub := bus.Subscribe()
		bus.Close()
		bus.Close() // idempotent

		assert.ErrorIs(t, bus.Publish(event.New(event.SignedIn, "")), event.ErrBusClosed)

		_, ok := <-sub.C
		assert.False(t, ok)
	})

	t.Run("subscribe after close yields closed channel", func(t *testing.T) {
		t.Parallel()

		bus := event.NewBus()
		bus.Close()

		sub := bus.Subscribe()
		_, ok := <-sub.C
		assert.False(t, ok)
	})
}
