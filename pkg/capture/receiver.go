package capture

import (
	"math"
	"sync/atomic"

	"rf433/pkg/port"

	"github.com/womat/debug"
)

// Receiver converts the edges of a receiver line into low pulse durations.
// The duration of a low pulse is the time between a falling edge and the next rising edge.
type Receiver struct {
	*Buffer

	// minPulse and maxPulse define the plausibility band of a pulse (µs), 0 disables the bound.
	minPulse uint32
	maxPulse uint32

	// lastFalling is the timestamp of the last falling edge, only used by the edge context.
	lastFalling int64
	// armed is true after the first falling edge.
	armed bool

	// rejected counts pulses outside the plausibility band.
	rejected atomic.Uint64

	// rx is the channel to receive the line events
	rx <-chan port.Event
	// quit stops the run loop
	quit chan struct{}
	// done signals that run is terminated
	done chan struct{}
}

// NewReceiver creates a receiver writing to b.
// Pulses shorter than minPulse or longer than maxPulse (µs) are dropped as impulse noise.
func NewReceiver(b *Buffer, minPulse, maxPulse uint32) *Receiver {
	return &Receiver{
		Buffer:   b,
		minPulse: minPulse,
		maxPulse: maxPulse,
	}
}

// Edge handles a single edge of the receiver line.
// It must only be called from one goroutine at a time (the edge context).
func (r *Receiver) Edge(evt port.Event) {
	now := evt.Timestamp.Microseconds()

	switch evt.Type {
	case port.FallingEdge:
		r.lastFalling = now
		r.armed = true

	case port.RisingEdge:
		if !r.armed {
			return
		}

		d := now - r.lastFalling
		if d <= 0 {
			return
		}
		if d > math.MaxUint32 {
			d = math.MaxUint32
		}

		if !r.plausible(uint32(d)) {
			r.rejected.Add(1)
			return
		}

		r.Append(uint32(d))
	}
}

// plausible checks d against the prefilter band.
func (r *Receiver) plausible(d uint32) bool {
	if r.minPulse > 0 && d < r.minPulse {
		return false
	}
	if r.maxPulse > 0 && d > r.maxPulse {
		return false
	}
	return true
}

// Rejected returns the count of pulses dropped by the prefilter band.
func (r *Receiver) Rejected() uint64 {
	return r.rejected.Load()
}

// Run starts receiving edges from c in a separate goroutine until c is closed or Close is called.
func (r *Receiver) Run(c <-chan port.Event) {
	r.rx = c
	r.quit = make(chan struct{})
	r.done = make(chan struct{})

	go r.run()
}

// Close stops receiving edges and waits until the run loop is terminated.
func (r *Receiver) Close() error {
	if r.quit == nil {
		return nil
	}

	select {
	case <-r.done:
	default:
		close(r.quit)
		<-r.done
	}

	return nil
}

// run receives events from channel rx and hands them to the edge handler.
func (r *Receiver) run() {
	defer close(r.done)

	for {
		select {
		case <-r.quit:
			return
		case evt, open := <-r.rx:
			if !open {
				debug.InfoLog.Print("line closed, stop receiving pulses")
				return
			}

			r.Edge(evt)
		}
	}
}
