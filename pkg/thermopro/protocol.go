// Package thermopro decodes the bit strings of 433 MHz outdoor temperature sensors.
//
// A message consists of a sync field (transmitter type and channel), a 12 bit
// two's complement temperature in 0.1 °C and a fixed end field.
package thermopro

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrProtocolMismatch   = errors.New("unknown protocol")
	ErrInvalidTemperature = errors.New("invalid temperature")
)

const (
	// DataBits is the width of the temperature field.
	DataBits = 12
	// NoChannel is the channel of readings from protocols without channel bits.
	NoChannel = -1
)

// Protocol describes the bit layout of a sensor family.
type Protocol struct {
	// Name is the protocol tag reported with a reading.
	Name string
	// Length is the total count of bits.
	Length int
	// SyncLength is the count of leading sync bits.
	SyncLength int
	// EndLength is the count of trailing end bits.
	EndLength int
	// Channel is true if the last two sync bits hold the channel.
	Channel bool
	// End is the known end marker, it's only checked by a strict Decoder.
	End string
}

// Protocols are the supported bit layouts, the first exact length match wins.
var Protocols = []Protocol{
	{Name: "TP", Length: 37, SyncLength: 16, EndLength: 9, Channel: true, End: "000000011"},
	{Name: "NN", Length: 32, SyncLength: 12, EndLength: 8},
}

// Reading is a decoded temperature message.
type Reading struct {
	Time        time.Time `json:"time"`
	Protocol    string    `json:"model"`
	Channel     int       `json:"channel"`
	Temperature float64   `json:"temperature_C"`
	Sync        string    `json:"sync"`
}

// Key identifies the sensor of a reading.
func (r Reading) Key() string {
	return r.Protocol + "/" + strconv.Itoa(r.Channel)
}

func (r Reading) String() string {
	return fmt.Sprintf("%s (%d): %.1f °C", r.Protocol, r.Channel, r.Temperature)
}

// Decoder decodes bit strings with the given protocol table.
type Decoder struct {
	Protocols []Protocol
	// Strict rejects messages whose end field doesn't match the known end marker.
	Strict bool
}

// Decode decodes a bit string with the default protocol table.
func Decode(bits string) (Reading, error) {
	return Decoder{Protocols: Protocols}.Decode(bits)
}

// Decode finds the protocol with the length of bits and extracts channel and temperature.
func (d Decoder) Decode(bits string) (Reading, error) {
	for _, p := range d.Protocols {
		if len(bits) != p.Length {
			continue
		}

		return d.decode(p, bits)
	}

	return Reading{}, fmt.Errorf("%w: %d bits", ErrProtocolMismatch, len(bits))
}

func (d Decoder) decode(p Protocol, bits string) (Reading, error) {
	r := Reading{Protocol: p.Name, Channel: NoChannel}

	if p.SyncLength+p.EndLength > len(bits) {
		return r, fmt.Errorf("%w: %s layout exceeds %d bits", ErrProtocolMismatch, p.Name, len(bits))
	}

	sync := bits[:p.SyncLength]
	data := bits[p.SyncLength : len(bits)-p.EndLength]
	end := bits[len(bits)-p.EndLength:]

	if len(data) != DataBits {
		return r, fmt.Errorf("%w: %s data field has %d bits", ErrProtocolMismatch, p.Name, len(data))
	}

	if d.Strict && p.End != "" && end != p.End {
		return r, fmt.Errorf("%w: %s end field %s", ErrProtocolMismatch, p.Name, end)
	}

	v, err := strconv.ParseUint(data, 2, DataBits)
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrProtocolMismatch, err)
	}

	if p.Channel && len(sync) >= 2 {
		c, err := strconv.ParseUint(sync[len(sync)-2:], 2, 2)
		if err != nil {
			return r, fmt.Errorf("%w: %v", ErrProtocolMismatch, err)
		}
		r.Channel = int(c) + 1
	}

	r.Sync = sync
	r.Temperature = float64(TwosComplement(v, DataBits)) / 10
	return r, nil
}

// TwosComplement interprets the lower width bits of v as signed integer.
// A width <= 0 returns 0, a width >= 64 interprets all bits of v.
func TwosComplement(v uint64, width int) int {
	switch {
	case width <= 0:
		return 0
	case width >= 64:
		return int(int64(v))
	}

	v &= 1<<width - 1
	if v&(1<<(width-1)) != 0 {
		return int(v) - 1<<width
	}
	return int(v)
}

// Encode builds the bit string of a protocol message.
// sync must have the sync length of the protocol, for channel protocols its last two bits
// are replaced by channel (1-4). tenths is the temperature in 0.1 °C.
func Encode(p Protocol, sync string, channel, tenths int) (string, error) {
	if len(sync) != p.SyncLength || strings.Trim(sync, "01") != "" {
		return "", fmt.Errorf("%w: invalid sync field %q", ErrProtocolMismatch, sync)
	}
	if tenths < -(1<<(DataBits-1)) || tenths >= 1<<(DataBits-1) {
		return "", fmt.Errorf("%w: %d", ErrInvalidTemperature, tenths)
	}
	if p.Length-p.SyncLength-p.EndLength != DataBits {
		return "", fmt.Errorf("%w: %s data field has %d bits", ErrProtocolMismatch, p.Name, p.Length-p.SyncLength-p.EndLength)
	}

	if p.Channel {
		if channel < 1 || channel > 4 {
			return "", fmt.Errorf("%w: channel %d", ErrProtocolMismatch, channel)
		}
		sync = sync[:len(sync)-2] + fmt.Sprintf("%02b", channel-1)
	}

	end := p.End
	if len(end) != p.EndLength {
		end = strings.Repeat("0", p.EndLength)
	}

	data := fmt.Sprintf("%0*b", DataBits, uint64(tenths)&(1<<DataBits-1))
	return sync + data + end, nil
}

// Lookup returns the protocol with the given name.
func Lookup(name string) (Protocol, bool) {
	for _, p := range Protocols {
		if p.Name == name {
			return p, true
		}
	}
	return Protocol{}, false
}
