package broadcast

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// waitForSubscribers blocks until the server sees n subscribers on the
// channel. SUBSCRIBE is asynchronous, so a publish racing ahead of it
// would be lost. The readiness pings are JSON null, which decodes to the
// zero value; receivers skip those.
func waitForSubscribers(t *testing.T, mr *miniredis.Miniredis, channel string, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return mr.Publish(channel, "null") >= n
	}, 2*time.Second, 5*time.Millisecond)
}

// recvString reads from the subscriber until a non-empty payload arrives,
// skipping the zero-value readiness pings.
func recvString(t *testing.T, sub Subscriber[string]) string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-sub.Receive(context.Background()):
			require.True(t, ok, "subscriber closed before a message arrived")
			if msg.Data != "" {
				return msg.Data
			}
		case <-deadline:
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestRedisBroadcaster_Broadcast(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	t.Run("delivers through redis pub/sub", func(t *testing.T) {
		mr, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		waitForSubscribers(t, mr, "events", 1)

		require.NoError(t, b.Broadcast(context.Background(), Message[string]{Data: "hello"}))
		assert.Equal(t, "hello", recvString(t, sub))
	})

	t.Run("reaches subscribers on other instances", func(t *testing.T) {
		mr, client := newTestRedis(t)
		peer := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = peer.Close() })

		b1 := NewRedisBroadcaster[string](client, "events", 10, log)
		defer b1.Close()
		b2 := NewRedisBroadcaster[string](peer, "events", 10, log)
		defer b2.Close()

		sub1 := b1.Subscribe(context.Background())
		sub2 := b2.Subscribe(context.Background())
		waitForSubscribers(t, mr, "events", 2)

		require.NoError(t, b1.Broadcast(context.Background(), Message[string]{Data: "fanout"}))
		assert.Equal(t, "fanout", recvString(t, sub1))
		assert.Equal(t, "fanout", recvString(t, sub2))
	})

	t.Run("malformed payload is dropped, stream continues", func(t *testing.T) {
		mr, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		waitForSubscribers(t, mr, "events", 1)

		mr.Publish("events", "{not json")
		require.NoError(t, b.Broadcast(context.Background(), Message[string]{Data: "after"}))

		assert.Equal(t, "after", recvString(t, sub))
	})

	t.Run("broadcast after close is rejected", func(t *testing.T) {
		_, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		require.NoError(t, b.Close())

		err := b.Broadcast(context.Background(), Message[string]{Data: "late"})
		assert.ErrorIs(t, err, ErrBroadcasterClosed)
	})
}

func TestRedisBroadcaster_Teardown(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	t.Run("close shuts down subscribers", func(t *testing.T) {
		mr, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		sub := b.Subscribe(context.Background())
		waitForSubscribers(t, mr, "events", 1)

		require.NoError(t, b.Close())

		require.Eventually(t, func() bool {
			select {
			case _, ok := <-sub.Receive(context.Background()):
				return !ok
			default:
				return false
			}
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		_, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		mr, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		waitForSubscribers(t, mr, "events", 1)

		cancel()

		require.Eventually(t, func() bool {
			select {
			case _, ok := <-sub.Receive(context.Background()):
				return !ok
			default:
				return false
			}
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("subscribe after close returns closed subscriber", func(t *testing.T) {
		_, client := newTestRedis(t)

		b := NewRedisBroadcaster[string](client, "events", 10, log)
		require.NoError(t, b.Close())

		sub := b.Subscribe(context.Background())
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
	})
}
