// Package pulse is a software decoder for pulse distance coded on/off keying.
//
// A transmission is repeated several times, each repetition (frame) is terminated
// by a gap pulse that is much longer than the data pulses. Decode splits the captured
// pulse durations into frames, averages them and classifies every averaged pulse
// as short (0) or long (1) with a threshold derived from the frame itself.
package pulse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/womat/debug"
)

var (
	// ErrInsufficientData is returned if fewer pulses than required are captured.
	ErrInsufficientData = errors.New("insufficient pulses")
	// ErrNoValidFrames is returned if no frame with the expected length is found.
	ErrNoValidFrames = errors.New("no valid frames")
	// ErrNoContrast is returned if the pulses of a frame can't be split in short and long pulses.
	ErrNoContrast = errors.New("no short/long pulse contrast")
)

// Options defines the expected transmission.
type Options struct {
	// MinPulses is the minimum count of pulses to start decoding.
	MinPulses int
	// MinFrame and MaxFrame are the accepted frame lengths including the gap pulse.
	MinFrame int
	MaxFrame int
	// Debug logs the decoding diagnostics.
	Debug bool
}

// Message is the result of a successful decoding.
type Message struct {
	// Bits are the decoded bits, one '0' or '1' per averaged data pulse.
	Bits string
	// Input is the count of pulses handed to Decode.
	Input int
	// Start is the count of leading pulses discarded before the first gap.
	Start int
	// Frames is the count of averaged frames.
	Frames int
	// Pulses are the averaged data pulses (µs).
	Pulses []uint32
	// Gap is the averaged gap pulse (µs).
	Gap uint32
	// Thresholds are the short/long cluster means of the averaged pulses.
	Thresholds Thresholds
}

// Decode converts captured pulse durations (µs) into a bit string.
func Decode(durations []uint32, o Options) (Message, error) {
	m := Message{Input: len(durations)}

	if len(durations) == 0 || len(durations) < o.MinPulses {
		return m, ErrInsufficientData
	}

	frames, start := Segment(durations, o.MinFrame, o.MaxFrame)
	m.Start = start
	if len(frames) == 0 {
		return m, ErrNoValidFrames
	}

	m.Frames = len(frames)
	m.Pulses, m.Gap = Average(frames)

	th, err := Cluster(m.Pulses)
	if err != nil {
		return m, fmt.Errorf("%w: %d pulses averaged from %d frames", err, len(m.Pulses), m.Frames)
	}

	m.Thresholds = th
	m.Bits = Binary(m.Pulses, th.Mid)

	if o.Debug {
		debug.DebugLog.Print(m.String())
	}

	return m, nil
}

// String returns the diagnostics of the message.
func (m Message) String() string {
	var s strings.Builder

	fmt.Fprintf(&s, "input %d pulses, message start %d\n", m.Input, m.Start)
	fmt.Fprintf(&s, "averaging %d transmissions with %d pulses, mean values:\n", m.Frames, len(m.Pulses))
	fmt.Fprintf(&s, "low: %.0f us  high: %.0f us  pulse: %.0f us  gap: %d us\n",
		m.Thresholds.Low, m.Thresholds.High, m.Thresholds.Mid, m.Gap)
	fmt.Fprintf(&s, "binary string: %s", m.Bits)

	return s.String()
}
