// Package capture records the low pulse durations of a 433 MHz receiver line.
//
// The Buffer is written by the edge context and drained by the polling context.
// Both hold the lock only for a single append or for the swap of the filled region.
package capture

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the number of pulses a Buffer holds if no capacity is configured.
const DefaultCapacity = 500

// Buffer is a fixed capacity, append-only store of pulse durations (µs).
type Buffer struct {
	// rl locks pulses and n.
	rl sync.Mutex
	// pulses is allocated once with the capacity of the buffer.
	pulses []uint32
	// n is the write index (count of valid entries in pulses).
	n int

	// overflows counts pulses dropped because the buffer was full.
	overflows atomic.Uint64
	// drains counts calls to Drain.
	drains atomic.Uint64
}

// NewBuffer allocates a buffer for capacity pulses.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer{pulses: make([]uint32, capacity)}
}

// Append adds a pulse duration to the buffer.
// If the buffer is full the pulse is dropped, counted as overflow and false is returned.
func (b *Buffer) Append(d uint32) bool {
	b.rl.Lock()
	if b.n >= len(b.pulses) {
		b.rl.Unlock()
		b.overflows.Add(1)
		return false
	}

	b.pulses[b.n] = d
	b.n++
	b.rl.Unlock()
	return true
}

// Drain takes over the content of the buffer and resets it to empty.
// The returned slice is a private copy and may be used without locking.
func (b *Buffer) Drain() []uint32 {
	b.rl.Lock()
	c := make([]uint32, b.n)
	copy(c, b.pulses[:b.n])
	b.n = 0
	b.rl.Unlock()

	b.drains.Add(1)
	return c
}

// Len returns the count of pulses currently stored.
func (b *Buffer) Len() int {
	b.rl.Lock()
	defer b.rl.Unlock()
	return b.n
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.pulses)
}

// Overflows returns the count of pulses dropped because the buffer was full.
func (b *Buffer) Overflows() uint64 {
	return b.overflows.Load()
}

// Drains returns how often the buffer was drained.
func (b *Buffer) Drains() uint64 {
	return b.drains.Load()
}
