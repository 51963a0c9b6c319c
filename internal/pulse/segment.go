package pulse

import (
	"errors"
	"math"
)

// Sentinel errors for invalid segmentation input.
var (
	ErrEmptyColumn  = errors.New("pulse: column has no samples")
	ErrBadThreshold = errors.New("pulse: threshold is not a number")
)

// Pulse is one maximal run of samples at or above the threshold.
// Start and End are row indices into the segmented column; End is
// inclusive, so every pulse spans at least one sample.
type Pulse struct {
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Peak    float64 `json:"peak"`
	Mean    float64 `json:"mean"`
	Samples int     `json:"samples"`
}

// Len returns the pulse length in samples.
func (p Pulse) Len() int {
	return p.End - p.Start + 1
}

// Segment scans column once and returns the ordered list of pulses
// whose samples are >= threshold. The boundary sample exactly equal to
// the threshold counts as active. NaN samples (missing or non-numeric
// cells in the source table) are treated as below threshold. A run
// still open when the column ends is closed at the last index.
//
// Segment fails only on invalid input: an empty column or a NaN
// threshold. A column with no active samples yields an empty, non-nil
// slice.
func Segment(column []float64, threshold float64) ([]Pulse, error) {
	if len(column) == 0 {
		return nil, ErrEmptyColumn
	}
	if math.IsNaN(threshold) {
		return nil, ErrBadThreshold
	}

	pulses := make([]Pulse, 0)

	var (
		inPulse bool
		start   int
		peak    float64
		sum     float64
		count   int
	)

	for i, v := range column {
		active := v >= threshold // false for NaN
		switch {
		case !inPulse && active:
			inPulse = true
			start = i
			peak = v
			sum = v
			count = 1
		case inPulse && active:
			if v > peak {
				peak = v
			}
			sum += v
			count++
		case inPulse && !active:
			pulses = append(pulses, Pulse{
				Start:   start,
				End:     i - 1,
				Peak:    peak,
				Mean:    sum / float64(count),
				Samples: count,
			})
			inPulse = false
		}
	}

	// Close the trailing run; an active run at end of data is a real
	// pulse, not a discard.
	if inPulse {
		pulses = append(pulses, Pulse{
			Start:   start,
			End:     len(column) - 1,
			Peak:    peak,
			Mean:    sum / float64(count),
			Samples: count,
		})
	}

	return pulses, nil
}
