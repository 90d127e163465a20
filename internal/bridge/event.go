package bridge

import (
	"fmt"

	"github.com/roach88/busbridge/internal/netman"
)

// EventKind distinguishes events delivered to the poll loop.
type EventKind int

const (
	// EventReady is emitted once, on the tick the connection becomes usable.
	EventReady EventKind = iota + 1
	// EventDevice carries one device event from the service stream.
	EventDevice
	// EventError carries a background failure.
	EventError
	// EventStreamClosed is emitted once when the device event stream ends.
	EventStreamClosed
)

var eventKindNames = map[EventKind]string{
	EventReady:        "ready",
	EventDevice:       "device",
	EventError:        "error",
	EventStreamClosed: "stream_closed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a synchronous-domain event produced by Poll.
type Event struct {
	// Seq is the bridge's logical clock value; strictly increasing.
	Seq  int64
	Kind EventKind

	Device netman.DeviceEvent // EventDevice only
	Error  *ErrorRecord       // EventError only
}
