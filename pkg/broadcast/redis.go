package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster fans messages out across process boundaries through a
// Redis pub/sub channel. Every subscriber, including ones in the
// publishing process, receives messages via Redis, so all instances of
// a horizontally-scaled deployment observe the same stream.
//
// Payloads are JSON-encoded. Delivery is at-least-once and unordered
// across publishers; consumers must tolerate duplicates and reordering.
type RedisBroadcaster[T any] struct {
	client     redis.UniversalClient
	channel    string
	bufferSize int
	log        *slog.Logger

	mu      sync.Mutex
	pubsubs map[*redis.PubSub]*subscriber[T]
	closed  bool
	wg      sync.WaitGroup
}

// NewRedisBroadcaster creates a broadcaster publishing to the given
// Redis channel. bufferSize bounds each subscriber's local queue, with
// the same drop-on-full semantics as the in-memory broadcaster.
func NewRedisBroadcaster[T any](client redis.UniversalClient, channel string, bufferSize int, log *slog.Logger) *RedisBroadcaster[T] {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBroadcaster[T]{
		client:     client,
		channel:    channel,
		bufferSize: max(bufferSize, 1),
		log:        log,
		pubsubs:    make(map[*redis.PubSub]*subscriber[T]),
	}
}

// Subscribe opens a Redis subscription and returns a subscriber fed from
// it. The subscription is torn down when ctx is cancelled, when the
// subscriber is closed, or when the broadcaster is closed.
func (b *RedisBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	b.pubsubs[pubsub] = sub

	b.wg.Add(1)
	go b.receiveLoop(ctx, pubsub, sub)

	return sub
}

func (b *RedisBroadcaster[T]) receiveLoop(ctx context.Context, pubsub *redis.PubSub, sub *subscriber[T]) {
	defer b.wg.Done()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.remove(pubsub, sub)
			return
		case m, ok := <-ch:
			if !ok {
				b.remove(pubsub, sub)
				return
			}
			var data T
			if err := json.Unmarshal([]byte(m.Payload), &data); err != nil {
				b.log.Warn("dropping malformed broadcast payload",
					"channel", b.channel,
					"error", err,
				)
				continue
			}
			// Non-blocking send: a slow local consumer loses the message
			// rather than stalling the receive loop.
			sub.send(Message[T]{Data: data})
		}
	}
}

// Broadcast JSON-encodes the message and publishes it to the Redis
// channel. A publish failure is returned to the caller, who decides
// whether it is fatal; the broadcaster itself stays usable.
func (b *RedisBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBroadcasterClosed
	}

	payload, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("broadcast: encode message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("broadcast: publish to %q: %w", b.channel, err)
	}
	return nil
}

// Close tears down all Redis subscriptions and closes all subscribers.
// Safe to call multiple times. The underlying Redis client is not closed;
// it is owned by the caller.
func (b *RedisBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	for pubsub, sub := range b.pubsubs {
		_ = pubsub.Close()
		_ = sub.Close()
	}
	clear(b.pubsubs)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *RedisBroadcaster[T]) remove(pubsub *redis.PubSub, sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pubsubs[pubsub]; !ok {
		return
	}
	delete(b.pubsubs, pubsub)
	_ = pubsub.Close()
	_ = sub.Close()
}
