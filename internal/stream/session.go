package stream

import (
	"errors"
	"io"
	"net/http"
	"sync"
)

// ErrSessionClosed is returned by Send after the session has been
// closed, either explicitly or by a failed write.
var ErrSessionClosed = errors.New("stream: session closed")

// session wraps one SSE response stream. Writes are serialized with a
// mutex because the fan-out path and the keepalive ticker push frames
// concurrently, and http.ResponseWriter is not safe for concurrent use.
type session struct {
	w     io.Writer
	flush http.Flusher

	mu     sync.Mutex
	closed bool
}

func newSession(w io.Writer, flush http.Flusher) *session {
	return &session{w: w, flush: flush}
}

// Send writes one line-delimited event frame. The first failed write
// marks the session closed so racing pushes fail fast instead of
// writing to a dead socket.
func (s *session) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if _, err := s.w.Write([]byte("data: ")); err != nil {
		s.closed = true
		return err
	}
	if _, err := s.w.Write(frame); err != nil {
		s.closed = true
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		s.closed = true
		return err
	}
	s.flush.Flush()
	return nil
}

// comment writes an SSE comment frame. Comments are ignored by clients;
// they exist to keep intermediaries from tearing down an idle stream.
func (s *session) comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if _, err := s.w.Write([]byte(":" + text + "\n\n")); err != nil {
		s.closed = true
		return err
	}
	s.flush.Flush()
	return nil
}

// close marks the session closed. Idempotent.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
