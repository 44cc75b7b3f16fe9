package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopFlusher struct{}

func (nopFlusher) Flush() {}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSession_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newSession(&buf, nopFlusher{})

	require.NoError(t, s.Send([]byte(`{"type":"connected"}`)))
	assert.Equal(t, "data: {\"type\":\"connected\"}\n\n", buf.String())
}

func TestSession_Comment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newSession(&buf, nopFlusher{})

	require.NoError(t, s.comment("heartbeat"))
	assert.Equal(t, ":heartbeat\n\n", buf.String())
}

func TestSession_SendAfterClose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newSession(&buf, nopFlusher{})
	s.close()

	assert.ErrorIs(t, s.Send([]byte("x")), ErrSessionClosed)
	assert.ErrorIs(t, s.comment("heartbeat"), ErrSessionClosed)
	assert.Empty(t, buf.String())
}

func TestSession_WriteFailureCloses(t *testing.T) {
	t.Parallel()

	s := newSession(failingWriter{}, nopFlusher{})

	require.Error(t, s.Send([]byte("x")))
	// Later sends fail fast without touching the dead writer.
	assert.ErrorIs(t, s.Send([]byte("y")), ErrSessionClosed)
}
