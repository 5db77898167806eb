//go:build linux

package raspberry

import (
	"rf433/pkg/port"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// Line represents a single requested line of a gpio character device.
type Line struct {
	*events
	chip      *gpiod.Chip
	gpiodLine *gpiod.Line
}

// openCdev opens the gpio chip and requests control of a single line.
// The kernel timestamps of the edges are sent to channel C.
func openCdev(c Config) (port.Line, error) {
	name := c.Chip
	if name == "" {
		name = "gpiochip0"
	}

	chip, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}

	line := &Line{events: newEvents(), chip: chip}

	// handler is called in the context of the gpiod event goroutine
	handler := func(evt gpiod.LineEvent) {
		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			line.send(port.Event{Type: port.RisingEdge, Timestamp: evt.Timestamp})
		case gpiod.LineEventFallingEdge:
			line.send(port.Event{Type: port.FallingEdge, Timestamp: evt.Timestamp})
		default:
			debug.ErrorLog.Printf("invalid line event: %v", evt.Type)
		}
	}

	switch c.Bias {
	case "pullup":
		line.gpiodLine, err = chip.RequestLine(c.Line, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = chip.RequestLine(c.Line, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	default:
		line.gpiodLine, err = chip.RequestLine(c.Line, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	}

	if err != nil {
		_ = chip.Close()
		return nil, err
	}

	return line, nil
}

// Close releases all resources held by the requested line and the chip.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	l.close()
	return l.chip.Close()
}
