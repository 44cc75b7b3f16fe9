package broadcast

import "errors"

// ErrBroadcasterClosed is returned when a message is broadcast through
// an already-closed broadcaster.
var ErrBroadcasterClosed = errors.New("broadcast: broadcaster is closed")
