// Package relay moves domain events from the webhook handler to the
// streaming clients that may see them. Two interchangeable backends are
// selected once at startup: direct in-process fan-out for a single
// instance, or fan-out via a shared broadcast channel for horizontally
// scaled deployments.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/letterboxhq/letterbox/pkg/broadcast"
)

// Publisher publishes domain events toward connected clients. Publish
// is best-effort: it must not block indefinitely and must never surface
// fan-out failures to the caller, since persistence has already happened
// by the time an event is raised.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Direct fans out synchronously to this process's connections. Suitable
// only for single-instance deployments.
type Direct struct {
	fanout *Fanout
}

func NewDirect(fanout *Fanout) *Direct {
	return &Direct{fanout: fanout}
}

func (d *Direct) Publish(ctx context.Context, ev Event) error {
	d.fanout.Deliver(ev)
	return nil
}

// DefaultPublishTimeout bounds how long a relay publish may block the
// webhook handler when the shared channel is unreachable.
const DefaultPublishTimeout = 5 * time.Second

// Channel relays events through a shared broadcast channel. Every
// instance, including the publisher, subscribes to the channel and fans
// received events out to its own local connections; no connection state
// is shared across instances.
type Channel struct {
	b       broadcast.Broadcaster[Event]
	fanout  *Fanout
	timeout time.Duration
	log     *slog.Logger
}

func NewChannel(b broadcast.Broadcaster[Event], fanout *Fanout, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{
		b:       b,
		fanout:  fanout,
		timeout: DefaultPublishTimeout,
		log:     log,
	}
}

// Publish sends the event into the shared channel. A channel outage
// degrades to a logged no-op: the caller has already persisted the
// status change, and reconnecting clients recover via the read path.
func (c *Channel) Publish(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.b.Broadcast(ctx, broadcast.Message[Event]{Data: ev}); err != nil {
		c.log.Error("event publish failed, dropping event",
			"event_id", ev.ID,
			"type", ev.Type,
			"error", err,
		)
	}
	return nil
}

// Run consumes the shared channel and fans events out locally. It blocks
// until ctx is cancelled or the subscription closes, and is meant to run
// as a dedicated goroutine for the lifetime of the process.
func (c *Channel) Run(ctx context.Context) {
	sub := c.b.Subscribe(ctx)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return
			}
			c.fanout.Deliver(msg.Data)
		}
	}
}
