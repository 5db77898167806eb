// Package raspberry is the watcher for gpio ports
package raspberry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"rf433/pkg/port"

	"github.com/womat/debug"
)

// supported gpio drivers
const (
	// Cdev uses the gpio character device (kernel timestamps).
	Cdev = "cdev"
	// Gpiomem uses the /dev/gpiomem memory range (timestamps taken in the watch handler).
	Gpiomem = "gpiomem"
)

// eventBuffer is the capacity of the event channel of a line.
const eventBuffer = 1024

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrUnsupported  = errors.New("gpio driver not supported on this platform")
)

// Config defines the input line.
type Config struct {
	// Driver is the gpio driver (cdev|gpiomem).
	Driver string
	// Chip is the gpio chip of the cdev driver, e.g. gpiochip0.
	Chip string
	// Line is the BCM gpio number.
	Line int
	// Bias is the terminator of the line (pullup|pulldown|none).
	Bias string
}

// Open requests the input line and watches it for edges on both directions.
func Open(c Config) (port.Line, error) {
	switch c.Bias {
	case "pullup", "pulldown", "none", "":
	default:
		return nil, fmt.Errorf("%w: bias %q", ErrInvalidParam, c.Bias)
	}

	switch c.Driver {
	case Cdev, "":
		return openCdev(c)
	case Gpiomem:
		return openMem(c)
	default:
		return nil, fmt.Errorf("%w: driver %q", ErrInvalidParam, c.Driver)
	}
}

// events is the edge channel of a line.
// Edges are never blocking, if the channel is full the edge is dropped.
// Edges after close are ignored, a watch handler may still run while the line is closed.
type events struct {
	C       chan port.Event
	dropped atomic.Uint64

	// cl locks closed and the sends to C
	cl     sync.Mutex
	closed bool
}

func newEvents() *events {
	return &events{C: make(chan port.Event, eventBuffer)}
}

// send hands the edge to the channel without blocking the watch handler.
func (e *events) send(evt port.Event) {
	e.cl.Lock()
	defer e.cl.Unlock()

	if e.closed {
		return
	}

	select {
	case e.C <- evt:
	default:
		if e.dropped.Add(1)%100 == 1 {
			debug.ErrorLog.Printf("event channel full, %d edges dropped", e.dropped.Load())
		}
	}
}

// close closes channel C, later edges are ignored.
func (e *events) close() {
	e.cl.Lock()
	defer e.cl.Unlock()

	if !e.closed {
		e.closed = true
		close(e.C)
	}
}

// Events returns the channel of the detected edges.
func (e *events) Events() <-chan port.Event {
	return e.C
}

// Dropped returns the count of edges dropped because the channel was full.
func (e *events) Dropped() uint64 {
	return e.dropped.Load()
}
