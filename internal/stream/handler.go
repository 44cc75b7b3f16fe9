// Package stream owns the live server-to-client event streams: the
// registry of open connections and the SSE session lifecycle.
package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/letterboxhq/letterbox/internal/auth"
)

// connectedFrame is the synthetic acknowledgement sent to a client as
// soon as its stream opens. It is never broadcast.
const connectedFrame = `{"type":"connected","message":"event stream established"}`

// DefaultKeepalive matches the interval browsers and proxies comfortably
// tolerate before assuming the stream is dead.
const DefaultKeepalive = 30 * time.Second

// Handler serves the long-lived SSE endpoint. Each connection moves
// through connecting → open → closed: on open it registers with the
// registry under the caller's authenticated identity; while open it
// receives keepalive comments and any frames the fan-out pushes; on
// close it unregisters exactly once.
type Handler struct {
	registry  *Registry
	keepalive time.Duration
	log       *slog.Logger
}

func NewHandler(registry *Registry, keepalive time.Duration, log *slog.Logger) *Handler {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{registry: registry, keepalive: keepalive, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Reject before allocating any stream resources.
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sess := newSession(w, flusher)
	if err := sess.Send([]byte(connectedFrame)); err != nil {
		return
	}

	h.registry.Register(sess, id)
	h.log.Debug("stream opened",
		"user_id", id.UserID,
		"role", id.Role,
		"connections", h.registry.Len(),
	)

	// A failed write and the close signal may race; both paths funnel
	// through this Once so cleanup runs exactly one time.
	cleanup := sync.OnceFunc(func() {
		sess.close()
		h.registry.Unregister(sess)
		h.log.Debug("stream closed",
			"user_id", id.UserID,
			"connections", h.registry.Len(),
		)
	})
	defer cleanup()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sess.comment("heartbeat"); err != nil {
				return
			}
		}
	}
}
