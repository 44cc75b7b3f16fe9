package relay

import (
	"log/slog"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/policy"
	"github.com/letterboxhq/letterbox/internal/stream"
)

// Fanout delivers one event to every eligible local connection. The
// visibility policy is evaluated once per (connection, event) pair; a
// push failure removes only the affected connection and never aborts
// delivery to the rest.
type Fanout struct {
	registry *stream.Registry
	log      *slog.Logger
}

func NewFanout(registry *stream.Registry, log *slog.Logger) *Fanout {
	if log == nil {
		log = slog.Default()
	}
	return &Fanout{registry: registry, log: log}
}

// Deliver pushes the event to all local connections that may see it.
func (f *Fanout) Deliver(ev Event) {
	frame, err := ev.Frame()
	if err != nil {
		f.log.Error("dropping undeliverable event",
			"event_id", ev.ID,
			"type", ev.Type,
			"error", err,
		)
		return
	}

	f.registry.ForEach(func(c stream.Conn, id auth.Identity) {
		if !policy.CanSee(id, ev.AccountID, ev.UserID) {
			return
		}
		if err := c.Send(frame); err != nil {
			// The client disconnected without a clean close signal.
			f.log.Debug("push failed, removing connection",
				"event_id", ev.ID,
				"user_id", id.UserID,
				"error", err,
			)
			f.registry.Unregister(c)
		}
	})
}
