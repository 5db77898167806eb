// Package port holds the definition of a physical port
package port

import "time"

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// String returns the edge name used in trace output.
func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "unknown"
	}
}

// Event is a single edge detected on an input line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	// The origin is defined by the line source, only differences are meaningful.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// Line is a source of edge events of a single input line.
type Line interface {
	// Events returns the channel the edges are sent to, it's closed by Close.
	Events() <-chan Event
	// Close releases the line.
	Close() error
}
