package pulse

import (
	"math"
)

// GapFactor is the share of the longest pulse from which on a pulse is treated as gap.
const GapFactor = 0.9

// GapThreshold returns the duration from which on a pulse terminates a frame.
func GapThreshold(durations []uint32) uint32 {
	var longest uint32
	for _, d := range durations {
		if d > longest {
			longest = d
		}
	}

	return uint32(math.RoundToEven(float64(longest) * GapFactor))
}

// Segment splits durations into frames. Every frame ends with its gap pulse.
//   - the pulses up to and including the first gap are discarded (start of the
//     capture in the middle of a transmission), start returns their count.
//   - a trailing frame without terminating gap is discarded.
//   - only frames with a length within [minLen, maxLen] are returned, a bound of 0 is not checked.
//   - if frames of different lengths are accepted, only the most frequent length is returned
//     (on equal frequency the longer one), because frames are averaged position by position.
func Segment(durations []uint32, minLen, maxLen int) (frames [][]uint32, start int) {
	gap := GapThreshold(durations)

	i := 0
	for i < len(durations) && durations[i] < gap {
		i++
	}
	// skip the first gap
	i++
	start = i

	counts := map[int]int{}
	var frame []uint32

	for ; i < len(durations); i++ {
		frame = append(frame, durations[i])
		if durations[i] < gap {
			continue
		}

		if l := len(frame); (minLen <= 0 || l >= minLen) && (maxLen <= 0 || l <= maxLen) {
			frames = append(frames, frame)
			counts[l]++
		}
		frame = nil
	}

	if len(counts) <= 1 {
		return frames, start
	}

	var best, bestCount int
	for l, c := range counts {
		if c > bestCount || (c == bestCount && l > best) {
			best, bestCount = l, c
		}
	}

	filtered := frames[:0]
	for _, f := range frames {
		if len(f) == best {
			filtered = append(filtered, f)
		}
	}

	return filtered, start
}

// Average returns the element-wise rounded mean of equal length frames.
// The last position (gap) is returned separately.
func Average(frames [][]uint32) (pulses []uint32, gap uint32) {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return nil, 0
	}

	n := len(frames[0])
	m := make([]uint32, n)

	for i := 0; i < n; i++ {
		var sum uint64
		for _, f := range frames {
			sum += uint64(f[i])
		}
		m[i] = uint32(math.RoundToEven(float64(sum) / float64(len(frames))))
	}

	return m[:n-1], m[n-1]
}
