// Package emulator is a software 433 MHz temperature sensor.
// It generates the edges a receiver line shows while a sensor transmits.
package emulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"rf433/pkg/port"
	"rf433/pkg/thermopro"

	"github.com/womat/debug"
)

// default pulse timing of the sensors
const (
	HighPulse  = 500 * time.Microsecond
	ShortPulse = 2000 * time.Microsecond
	LongPulse  = 4000 * time.Microsecond
	GapPulse   = 8800 * time.Microsecond
	Repeats    = 6
)

// Transmitter converts bit strings to edge events.
// Every bit is a high pulse followed by a short (0) or long (1) low pulse,
// every repetition of the message is terminated by a gap low pulse.
type Transmitter struct {
	High, Short, Long, Gap time.Duration
	Repeats                int
	// Jitter is the max relative deviation of a pulse (0.1 = ±10%).
	// Gap pulses deviate by a fifth of Jitter.
	Jitter float64

	rnd *rand.Rand
}

// NewTransmitter returns a transmitter with the default timing.
// seed initializes the jitter source.
func NewTransmitter(jitter float64, seed int64) *Transmitter {
	return &Transmitter{
		High:    HighPulse,
		Short:   ShortPulse,
		Long:    LongPulse,
		Gap:     GapPulse,
		Repeats: Repeats,
		Jitter:  jitter,
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

// Lows returns the low pulses of a transmission of bits.
// The transmission starts with a gap, so the receiver sees every repetition.
func (t *Transmitter) Lows(bits string) ([]time.Duration, error) {
	lows := []time.Duration{t.jitter(t.Gap, t.Jitter/5)}

	for r := 0; r < t.Repeats; r++ {
		for _, b := range bits {
			switch b {
			case '0':
				lows = append(lows, t.jitter(t.Short, t.Jitter))
			case '1':
				lows = append(lows, t.jitter(t.Long, t.Jitter))
			default:
				return nil, fmt.Errorf("invalid bit %q", b)
			}
		}
		lows = append(lows, t.jitter(t.Gap, t.Jitter/5))
	}

	return lows, nil
}

// Events returns the edges of a transmission of bits starting at start.
// The second return value is the timestamp of the last edge.
func (t *Transmitter) Events(start time.Duration, bits string) ([]port.Event, time.Duration, error) {
	lows, err := t.Lows(bits)
	if err != nil {
		return nil, start, err
	}

	evts := make([]port.Event, 0, 2*len(lows))
	ts := start

	// the line idles high, the first low pulse is the leading gap
	evts = append(evts, port.Event{Type: port.FallingEdge, Timestamp: ts})
	ts += lows[0]

	for _, l := range lows[1:] {
		evts = append(evts, port.Event{Type: port.RisingEdge, Timestamp: ts})
		ts += t.jitter(t.High, t.Jitter)
		evts = append(evts, port.Event{Type: port.FallingEdge, Timestamp: ts})
		ts += l
	}

	// the last low pulse ends with a rising edge
	evts = append(evts, port.Event{Type: port.RisingEdge, Timestamp: ts})
	return evts, ts, nil
}

// jitter returns d deviated by max ±pct.
func (t *Transmitter) jitter(d time.Duration, pct float64) time.Duration {
	if pct <= 0 || t.rnd == nil {
		return d
	}
	return time.Duration(float64(d) * (1 + pct*(2*t.rnd.Float64()-1)))
}

// Sensor defines an emulated sensor.
type Sensor struct {
	Protocol    string  `yaml:"protocol"`
	Sync        string  `yaml:"sync"`
	Channel     int     `yaml:"channel"`
	Temperature float64 `yaml:"temperature"`
}

// Bits returns the bit string the sensor transmits.
func (s Sensor) Bits() (string, error) {
	p, ok := thermopro.Lookup(s.Protocol)
	if !ok {
		return "", fmt.Errorf("%w: %q", thermopro.ErrProtocolMismatch, s.Protocol)
	}

	return thermopro.Encode(p, s.Sync, s.Channel, int(math.Round(s.Temperature*10)))
}

// Line is an emulated receiver line, the sensors transmit one after the other every interval.
type Line struct {
	// C receives the emulated edges.
	C chan port.Event

	tx       *Transmitter
	sensors  []string
	interval time.Duration
	origin   time.Time

	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// Open starts a line emulating sensors.
func Open(sensors []Sensor, interval time.Duration, jitter float64) (*Line, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid transmit interval %v", interval)
	}

	l := &Line{
		C:        make(chan port.Event, 1024),
		tx:       NewTransmitter(jitter, time.Now().UnixNano()),
		interval: interval,
		origin:   time.Now(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, s := range sensors {
		bits, err := s.Bits()
		if err != nil {
			return nil, err
		}
		debug.InfoLog.Printf("emulate sensor %s channel %d: %.1f °C (%s)", s.Protocol, s.Channel, s.Temperature, bits)
		l.sensors = append(l.sensors, bits)
	}

	go l.run()
	return l, nil
}

// Events returns the channel of the emulated edges.
func (l *Line) Events() <-chan port.Event {
	return l.C
}

// Close stops the emulation and closes the event channel.
func (l *Line) Close() error {
	l.once.Do(func() {
		close(l.quit)
		<-l.done
		close(l.C)
	})
	return nil
}

// run transmits all sensors every interval.
// Transmissions are spaced far enough apart for the receiver to drain in between.
func (l *Line) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C:
			if len(l.sensors) == 0 {
				continue
			}

			bits := l.sensors[next%len(l.sensors)]
			next++

			evts, _, err := l.tx.Events(time.Since(l.origin), bits)
			if err != nil {
				debug.ErrorLog.Println(err)
				continue
			}

			debug.TraceLog.Printf("emulate transmission of %d edges", len(evts))
			for _, e := range evts {
				select {
				case l.C <- e:
				case <-l.quit:
					return
				}
			}
		}
	}
}
