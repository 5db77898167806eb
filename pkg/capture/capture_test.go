package capture

import (
	"sync"
	"testing"
	"time"

	"rf433/pkg/port"

	"github.com/stretchr/testify/require"
)

func TestBufferCapacity(t *testing.T) {
	b := NewBuffer(4)

	for i := uint32(1); i <= 10; i++ {
		ok := b.Append(i * 100)
		require.Equal(t, i <= 4, ok, "append %d", i)
	}

	require.Equal(t, 4, b.Len())
	require.Equal(t, uint64(6), b.Overflows())
	require.Equal(t, []uint32{100, 200, 300, 400}, b.Drain())
}

func TestBufferDrainResets(t *testing.T) {
	b := NewBuffer(3)
	b.Append(1)
	b.Append(2)

	first := b.Drain()
	require.Equal(t, []uint32{1, 2}, first)
	require.Zero(t, b.Len())
	require.Equal(t, uint64(1), b.Drains())

	// the drained copy must not be touched by later writes
	b.Append(7)
	require.Equal(t, []uint32{1, 2}, first)
	require.Equal(t, []uint32{7}, b.Drain())
	require.Empty(t, b.Drain())
}

func TestBufferDefaultCapacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewBuffer(0).Cap())
}

func TestBufferConcurrentAppendDrain(t *testing.T) {
	const writes = 10000
	b := NewBuffer(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			b.Append(uint32(i + 1))
		}
	}()

	var drained int
	for i := 0; i < 100; i++ {
		for _, d := range b.Drain() {
			require.NotZero(t, d)
			drained++
		}
	}
	wg.Wait()
	drained += len(b.Drain())

	require.Equal(t, writes, drained+int(b.Overflows()))
}

func edges(lows ...time.Duration) []port.Event {
	var evts []port.Event
	ts := time.Millisecond
	for _, l := range lows {
		evts = append(evts, port.Event{Type: port.FallingEdge, Timestamp: ts})
		ts += l
		evts = append(evts, port.Event{Type: port.RisingEdge, Timestamp: ts})
		ts += 500 * time.Microsecond
	}
	return evts
}

func TestReceiverEdge(t *testing.T) {
	r := NewReceiver(NewBuffer(10), 0, 0)

	// a rising edge without preceding falling edge is ignored
	r.Edge(port.Event{Type: port.RisingEdge, Timestamp: 100 * time.Microsecond})

	for _, e := range edges(2000*time.Microsecond, 4000*time.Microsecond, 8800*time.Microsecond) {
		r.Edge(e)
	}

	require.Equal(t, []uint32{2000, 4000, 8800}, r.Drain())
	require.Zero(t, r.Rejected())
}

func TestReceiverPrefilter(t *testing.T) {
	r := NewReceiver(NewBuffer(10), 1000, 9000)

	for _, e := range edges(200*time.Microsecond, 2000*time.Microsecond, 9500*time.Microsecond, 8800*time.Microsecond) {
		r.Edge(e)
	}

	require.Equal(t, []uint32{2000, 8800}, r.Drain())
	require.Equal(t, uint64(2), r.Rejected())
}

func TestReceiverRun(t *testing.T) {
	r := NewReceiver(NewBuffer(10), 0, 0)
	c := make(chan port.Event)
	r.Run(c)

	for _, e := range edges(2000*time.Microsecond, 4000*time.Microsecond) {
		c <- e
	}
	close(c)
	require.NoError(t, r.Close())

	require.Equal(t, []uint32{2000, 4000}, r.Drain())
}

func TestReceiverCloseWithoutRun(t *testing.T) {
	require.NoError(t, NewReceiver(NewBuffer(1), 0, 0).Close())
}
