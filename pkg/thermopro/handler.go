package thermopro

import (
	"errors"
	"math"
	"sync"
	"time"

	"rf433/pkg/pulse"
)

const (
	// plausible temperature range
	tMax = 100
	tMin = -50

	// max temperature difference to the last reading of the same sensor
	maxDelta = 50
	// count of consecutive agreeing readings that replace the last reading despite maxDelta
	relearn = 3
)

// Source is the pulse buffer the handler drains.
type Source interface {
	// Len returns the count of captured pulses.
	Len() int
	// Drain takes over the captured pulses and empties the source.
	Drain() []uint32
}

// Stats are the decoding counters of a handler.
type Stats struct {
	Attempts           uint64 `json:"attempts"`
	Decoded            uint64 `json:"decoded"`
	InsufficientData   uint64 `json:"insufficientData"`
	NoValidFrames      uint64 `json:"noValidFrames"`
	NoContrast         uint64 `json:"noContrast"`
	ProtocolMismatch   uint64 `json:"protocolMismatch"`
	InvalidTemperature uint64 `json:"invalidTemperature"`
	LastBits           string `json:"lastBits"`
}

// Handler drains a pulse source and decodes its content to readings.
type Handler struct {
	src     Source
	options pulse.Options
	decoder Decoder

	// sl locks stats, lastValue and pending
	sl        sync.Mutex
	stats     Stats
	lastValue map[string]Reading
	pending   map[string]candidate
}

// candidate is a reading rejected by maxDelta, confirmed by count agreeing readings.
type candidate struct {
	reading Reading
	count   int
}

// FrameBand returns the frame lengths (including gap) of the protocols.
func FrameBand(protocols []Protocol) (minLen, maxLen int) {
	for i, p := range protocols {
		if i == 0 || p.Length+1 < minLen {
			minLen = p.Length + 1
		}
		if p.Length+1 > maxLen {
			maxLen = p.Length + 1
		}
	}
	return minLen, maxLen
}

// New generate a new handler for the pulses of src.
// If o defines no frame lengths, the lengths of the protocols are used.
func New(src Source, o pulse.Options, d Decoder) *Handler {
	if len(d.Protocols) == 0 {
		d.Protocols = Protocols
	}
	if o.MinFrame == 0 && o.MaxFrame == 0 {
		o.MinFrame, o.MaxFrame = FrameBand(d.Protocols)
	}

	return &Handler{
		src:       src,
		options:   o,
		decoder:   d,
		lastValue: map[string]Reading{},
		pending:   map[string]candidate{},
	}
}

// Get drains the pulse source and decodes the pulses to a reading.
// The source isn't drained if it holds less pulses than required (pulse.ErrInsufficientData).
// The reading is valid, if the temperature is within a temperature range (tMin, tMax) and
// the difference to the last reading of the same sensor is less than maxDelta.
// relearn consecutive readings within maxDelta of each other replace the last reading,
// so a sensor recovers from an outlier or a replaced sensor on the same channel.
func (h *Handler) Get() (Reading, error) {
	if n := h.src.Len(); n == 0 || n < h.options.MinPulses {
		h.count("", pulse.ErrInsufficientData)
		return Reading{}, pulse.ErrInsufficientData
	}

	m, err := pulse.Decode(h.src.Drain(), h.options)
	if err == nil {
		var r Reading
		if r, err = h.decoder.Decode(m.Bits); err == nil {
			r.Time = time.Now()
			err = h.validate(r)
			h.count(m.Bits, err)
			return r, err
		}
	}

	h.count(m.Bits, err)
	return Reading{}, err
}

// validate checks the temperature range and the delta to the last reading of the same sensor.
func (h *Handler) validate(r Reading) error {
	if r.Temperature > tMax || r.Temperature < tMin {
		return ErrInvalidTemperature
	}

	h.sl.Lock()
	defer h.sl.Unlock()

	k := r.Key()
	if l, ok := h.lastValue[k]; ok && math.Abs(r.Temperature-l.Temperature) > maxDelta {
		c, ok := h.pending[k]
		if ok && math.Abs(r.Temperature-c.reading.Temperature) <= maxDelta {
			c.count++
		} else {
			c.count = 1
		}
		c.reading = r

		if c.count < relearn {
			h.pending[k] = c
			return ErrInvalidTemperature
		}
	}

	delete(h.pending, k)
	h.lastValue[k] = r
	return nil
}

func (h *Handler) count(bits string, err error) {
	h.sl.Lock()
	defer h.sl.Unlock()

	h.stats.Attempts++
	if bits != "" {
		h.stats.LastBits = bits
	}

	switch {
	case err == nil:
		h.stats.Decoded++
	case errors.Is(err, pulse.ErrInsufficientData):
		h.stats.InsufficientData++
	case errors.Is(err, pulse.ErrNoValidFrames):
		h.stats.NoValidFrames++
	case errors.Is(err, pulse.ErrNoContrast):
		h.stats.NoContrast++
	case errors.Is(err, ErrProtocolMismatch):
		h.stats.ProtocolMismatch++
	case errors.Is(err, ErrInvalidTemperature):
		h.stats.InvalidTemperature++
	}
}

// Stats returns a copy of the decoding counters.
func (h *Handler) Stats() Stats {
	h.sl.Lock()
	defer h.sl.Unlock()
	return h.stats
}

// Options returns the pulse decoding options of the handler.
func (h *Handler) Options() pulse.Options {
	return h.options
}
