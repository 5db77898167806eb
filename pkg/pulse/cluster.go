package pulse

import "strings"

// Thresholds are the means of the short and long pulse groups and the threshold between them.
type Thresholds struct {
	// Low is the mean of the short pulses.
	Low float64
	// High is the mean of the long pulses.
	High float64
	// Mid is the threshold between short and long pulses.
	Mid float64
}

// Cluster splits the pulses at their overall mean into short and long pulses
// and returns the midpoint between the means of both groups.
// If one of the groups is empty, ErrNoContrast is returned.
func Cluster(pulses []uint32) (Thresholds, error) {
	if len(pulses) == 0 {
		return Thresholds{}, ErrNoContrast
	}

	var sum float64
	for _, p := range pulses {
		sum += float64(p)
	}
	mean := sum / float64(len(pulses))

	var lowSum, highSum float64
	var lowCnt, highCnt int

	for _, p := range pulses {
		if float64(p) < mean {
			lowSum += float64(p)
			lowCnt++
			continue
		}

		highSum += float64(p)
		highCnt++
	}

	if lowCnt == 0 || highCnt == 0 {
		return Thresholds{}, ErrNoContrast
	}

	t := Thresholds{
		Low:  lowSum / float64(lowCnt),
		High: highSum / float64(highCnt),
	}
	t.Mid = (t.Low + t.High) / 2

	return t, nil
}

// Binary converts pulses to a bit string.
// Pulses shorter than threshold are 0, all others are 1.
func Binary(pulses []uint32, threshold float64) string {
	var s strings.Builder
	s.Grow(len(pulses))

	for _, p := range pulses {
		if float64(p) < threshold {
			s.WriteByte('0')
		} else {
			s.WriteByte('1')
		}
	}

	return s.String()
}
