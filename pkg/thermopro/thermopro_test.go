package thermopro

import (
	"testing"

	"rf433/pkg/pulse"

	"github.com/stretchr/testify/require"
)

const tpSync = "1001111001000000"

func TestDecodeTP(t *testing.T) {
	r, err := Decode("1001111001000000" + "000000000011" + "000000011")
	require.NoError(t, err)
	require.Equal(t, "TP", r.Protocol)
	require.Equal(t, 1, r.Channel)
	require.Equal(t, 0.3, r.Temperature)
	require.Equal(t, tpSync, r.Sync)
	require.Equal(t, "TP/1", r.Key())
}

func TestDecodeNN(t *testing.T) {
	r, err := Decode("101100101101" + "111111110001" + "00001111")
	require.NoError(t, err)
	require.Equal(t, "NN", r.Protocol)
	require.Equal(t, NoChannel, r.Channel)
	require.Equal(t, -1.5, r.Temperature)
}

func TestDecodeChannel(t *testing.T) {
	for ch, sync := range map[int]string{
		1: "1001111001000000",
		2: "1001111001000001",
		3: "1001111001000010",
		4: "1001111001000011",
	} {
		r, err := Decode(sync + "000011001000" + "000000011")
		require.NoError(t, err)
		require.Equal(t, ch, r.Channel)
		require.Equal(t, 20.0, r.Temperature)
	}
}

func TestDecodeMismatch(t *testing.T) {
	for _, bits := range []string{"", "0101", tpSync + "000000000011" + "0000000111"} {
		_, err := Decode(bits)
		require.ErrorIs(t, err, ErrProtocolMismatch, bits)
	}
}

func TestDecodeDataFieldWidth(t *testing.T) {
	d := Decoder{Protocols: []Protocol{{Name: "XX", Length: 30, SyncLength: 10, EndLength: 9}}}

	_, err := d.Decode(tpSync[:10] + "00000000011" + "000000011")
	require.ErrorIs(t, err, ErrProtocolMismatch)
}

func TestDecodeFirstMatchWins(t *testing.T) {
	d := Decoder{Protocols: []Protocol{
		{Name: "A", Length: 32, SyncLength: 12, EndLength: 8},
		{Name: "B", Length: 32, SyncLength: 8, EndLength: 12},
	}}

	r, err := d.Decode("000000000000" + "000000000001" + "00000000")
	require.NoError(t, err)
	require.Equal(t, "A", r.Protocol)
	require.Equal(t, 0.1, r.Temperature)
}

func TestDecodeStrict(t *testing.T) {
	bits := tpSync + "000000000011" + "000000111"

	_, err := Decode(bits)
	require.NoError(t, err)

	_, err = Decoder{Protocols: Protocols, Strict: true}.Decode(bits)
	require.ErrorIs(t, err, ErrProtocolMismatch)

	_, err = Decoder{Protocols: Protocols, Strict: true}.Decode(tpSync + "000000000011" + "000000011")
	require.NoError(t, err)
}

func TestTwosComplementRoundTrip(t *testing.T) {
	for v := -2048; v <= 2047; v++ {
		require.Equal(t, v, TwosComplement(uint64(v)&0xfff, DataBits))
	}

	require.Equal(t, -15, TwosComplement(0b111111110001, DataBits))
	require.Equal(t, -2048, TwosComplement(0x800, DataBits))
	require.Equal(t, 2047, TwosComplement(0x7ff, DataBits))
}

func TestTwosComplementWidth(t *testing.T) {
	require.Equal(t, -1, TwosComplement(1, 1))
	require.Equal(t, 0, TwosComplement(0xfff, 0))
	require.Equal(t, 0, TwosComplement(0xfff, -3))
	require.Equal(t, -1, TwosComplement(1<<63-1, 63))
	require.Equal(t, -1, TwosComplement(^uint64(0), 64))
	require.Equal(t, 5, TwosComplement(5, 100))
}

func TestEncode(t *testing.T) {
	tp, ok := Lookup("TP")
	require.True(t, ok)
	nn, ok := Lookup("NN")
	require.True(t, ok)

	bits, err := Encode(tp, tpSync, 1, 3)
	require.NoError(t, err)
	require.Equal(t, tpSync+"000000000011"+"000000011", bits)

	bits, err = Encode(nn, "101100101101", 0, -15)
	require.NoError(t, err)
	require.Equal(t, "101100101101"+"111111110001"+"00000000", bits)

	for _, tenths := range []int{-2048, -400, -1, 0, 1, 215, 2047} {
		for ch := 1; ch <= 4; ch++ {
			bits, err := Encode(tp, tpSync, ch, tenths)
			require.NoError(t, err)

			r, err := Decode(bits)
			require.NoError(t, err)
			require.Equal(t, ch, r.Channel)
			require.InDelta(t, float64(tenths)/10, r.Temperature, 1e-9)
		}
	}

	_, err = Encode(tp, "10", 1, 0)
	require.ErrorIs(t, err, ErrProtocolMismatch)
	_, err = Encode(tp, tpSync, 5, 0)
	require.ErrorIs(t, err, ErrProtocolMismatch)
	_, err = Encode(tp, tpSync, 1, 2048)
	require.ErrorIs(t, err, ErrInvalidTemperature)

	_, ok = Lookup("XX")
	require.False(t, ok)
}

func TestFrameBand(t *testing.T) {
	minLen, maxLen := FrameBand(Protocols)
	require.Equal(t, 33, minLen)
	require.Equal(t, 38, maxLen)
}

// source is a pulse source for tests.
type source struct {
	pulses []uint32
}

func (s *source) Len() int { return len(s.pulses) }

func (s *source) Drain() []uint32 {
	p := s.pulses
	s.pulses = nil
	return p
}

// pulses returns a leading gap and n repetitions of the pulses of bits.
func pulses(bits string, n int) []uint32 {
	p := []uint32{8800}
	for i := 0; i < n; i++ {
		for _, b := range bits {
			if b == '1' {
				p = append(p, 4000)
			} else {
				p = append(p, 2000)
			}
		}
		p = append(p, 8800)
	}
	return p
}

func encode(t *testing.T, channel, tenths int) string {
	t.Helper()

	bits, err := Encode(Protocols[0], tpSync, channel, tenths)
	require.NoError(t, err)
	return bits
}

func TestHandlerGet(t *testing.T) {
	src := &source{}
	h := New(src, pulse.Options{MinPulses: 32}, Decoder{})
	require.Equal(t, 33, h.Options().MinFrame)
	require.Equal(t, 38, h.Options().MaxFrame)

	// not enough pulses, the source isn't drained
	src.pulses = []uint32{2000, 4000, 8800}
	_, err := h.Get()
	require.ErrorIs(t, err, pulse.ErrInsufficientData)
	require.Equal(t, 3, src.Len())

	src.pulses = pulses(encode(t, 1, 3), 6)
	r, err := h.Get()
	require.NoError(t, err)
	require.Equal(t, "TP", r.Protocol)
	require.Equal(t, 1, r.Channel)
	require.Equal(t, 0.3, r.Temperature)
	require.False(t, r.Time.IsZero())
	require.Zero(t, src.Len())

	// delta to the last reading of channel 1 is too large
	src.pulses = pulses(encode(t, 1, 600), 6)
	_, err = h.Get()
	require.ErrorIs(t, err, ErrInvalidTemperature)

	// out of range on another channel
	src.pulses = pulses(encode(t, 2, 1500), 6)
	_, err = h.Get()
	require.ErrorIs(t, err, ErrInvalidTemperature)

	// garbage is drained, too
	src.pulses = make([]uint32, 40)
	for i := range src.pulses {
		src.pulses[i] = 2000
	}
	_, err = h.Get()
	require.ErrorIs(t, err, pulse.ErrNoValidFrames)
	require.Zero(t, src.Len())

	s := h.Stats()
	require.Equal(t, uint64(5), s.Attempts)
	require.Equal(t, uint64(1), s.Decoded)
	require.Equal(t, uint64(1), s.InsufficientData)
	require.Equal(t, uint64(2), s.InvalidTemperature)
	require.Equal(t, uint64(1), s.NoValidFrames)
}

func TestHandlerRecoversFromOutlier(t *testing.T) {
	src := &source{}
	h := New(src, pulse.Options{MinPulses: 32}, Decoder{})

	src.pulses = pulses(encode(t, 1, 800), 6)
	r, err := h.Get()
	require.NoError(t, err)
	require.Equal(t, 80.0, r.Temperature)

	// rejected until relearn readings agree
	for i := 1; i < relearn; i++ {
		src.pulses = pulses(encode(t, 1, 150), 6)
		_, err = h.Get()
		require.ErrorIs(t, err, ErrInvalidTemperature, "reading %d", i)
	}

	for i := 0; i < 3; i++ {
		src.pulses = pulses(encode(t, 1, 150+i), 6)
		r, err = h.Get()
		require.NoError(t, err)
		require.InDelta(t, 15.0+float64(i)/10, r.Temperature, 1e-9)
	}

	// a single outlier doesn't replace the last reading
	src.pulses = pulses(encode(t, 1, 900), 6)
	_, err = h.Get()
	require.ErrorIs(t, err, ErrInvalidTemperature)

	src.pulses = pulses(encode(t, 1, 153), 6)
	r, err = h.Get()
	require.NoError(t, err)
	require.InDelta(t, 15.3, r.Temperature, 1e-9)

	// disagreeing outliers restart the count
	for _, tenths := range []int{-400, 900, -400} {
		src.pulses = pulses(encode(t, 1, tenths), 6)
		_, err = h.Get()
		require.ErrorIs(t, err, ErrInvalidTemperature, "%d", tenths)
	}

	s := h.Stats()
	require.Equal(t, uint64(5), s.Decoded)
	require.Equal(t, uint64(relearn-1+4), s.InvalidTemperature)
}

func TestHandlerProtocolMismatch(t *testing.T) {
	src := &source{pulses: pulses("1010101010", 4)}
	h := New(src, pulse.Options{MinPulses: 10, MinFrame: 11, MaxFrame: 11}, Decoder{})

	_, err := h.Get()
	require.ErrorIs(t, err, ErrProtocolMismatch)
	require.Equal(t, uint64(1), h.Stats().ProtocolMismatch)
	require.Equal(t, "1010101010", h.Stats().LastBits)
}
