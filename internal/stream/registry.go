package stream

import (
	"sync"

	"github.com/letterboxhq/letterbox/internal/auth"
)

// Conn is a live client connection frames can be pushed to. Send must be
// safe for concurrent use and must fail, not block, once the connection
// is gone.
type Conn interface {
	Send(frame []byte) error
}

// Registry tracks live streaming connections and the identity bound to
// each. A connection maps to exactly one identity for its lifetime;
// identity is fixed at registration and never mutated.
//
// All methods are safe to call concurrently from independent connection
// lifecycles and from the fan-out path.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]auth.Identity
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]auth.Identity)}
}

// Register binds the connection to the given identity.
func (r *Registry) Register(c Conn, id auth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = id
}

// Unregister removes the connection. Safe to call more than once; the
// second call is a no-op. A close signal and a failed write racing each
// other may both trigger it.
func (r *Registry) Unregister(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ForEach visits a consistent snapshot of the registry. The visitor runs
// outside the lock, so it may call Unregister without deadlocking, and a
// connection removed mid-iteration by another goroutine is simply a
// stale entry whose push fails gracefully.
func (r *Registry) ForEach(visit func(c Conn, id auth.Identity)) {
	r.mu.RLock()
	type entry struct {
		conn Conn
		id   auth.Identity
	}
	snapshot := make([]entry, 0, len(r.conns))
	for c, id := range r.conns {
		snapshot = append(snapshot, entry{conn: c, id: id})
	}
	r.mu.RUnlock()

	for _, e := range snapshot {
		visit(e.conn, e.id)
	}
}
