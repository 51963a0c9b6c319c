package pulse

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name      string
		column    []float64
		threshold float64
		want      []Pulse
	}{
		{
			name:      "all below threshold",
			column:    []float64{0, 1, 2, 3, 4},
			threshold: 5,
			want:      []Pulse{},
		},
		{
			name:      "all at or above threshold",
			column:    []float64{6, 8, 10, 8},
			threshold: 5,
			want: []Pulse{
				{Start: 0, End: 3, Peak: 10, Mean: 8, Samples: 4},
			},
		},
		{
			name:      "boundary sample equal to threshold is active",
			column:    []float64{0, 5, 5, 0},
			threshold: 5,
			want: []Pulse{
				{Start: 1, End: 2, Peak: 5, Mean: 5, Samples: 2},
			},
		},
		{
			name:      "trailing run closed at end of data",
			column:    []float64{0, 10, 10},
			threshold: 5,
			want: []Pulse{
				{Start: 1, End: 2, Peak: 10, Mean: 10, Samples: 2},
			},
		},
		{
			name:      "two separated pulses",
			column:    []float64{0, 50, 60, 0, 0, 70, 0},
			threshold: 20,
			want: []Pulse{
				{Start: 1, End: 2, Peak: 60, Mean: 55, Samples: 2},
				{Start: 5, End: 5, Peak: 70, Mean: 70, Samples: 1},
			},
		},
		{
			name:      "single sample pulse at start",
			column:    []float64{9, 0, 0},
			threshold: 9,
			want: []Pulse{
				{Start: 0, End: 0, Peak: 9, Mean: 9, Samples: 1},
			},
		},
		{
			name:      "nan samples break a run",
			column:    []float64{0, 10, math.NaN(), 10, 0},
			threshold: 5,
			want: []Pulse{
				{Start: 1, End: 1, Peak: 10, Mean: 10, Samples: 1},
				{Start: 3, End: 3, Peak: 10, Mean: 10, Samples: 1},
			},
		},
		{
			name:      "all nan yields no pulses",
			column:    []float64{math.NaN(), math.NaN()},
			threshold: 0,
			want:      []Pulse{},
		},
		{
			name:      "negative threshold",
			column:    []float64{-3, -1, -5, -1},
			threshold: -2,
			want: []Pulse{
				{Start: 1, End: 1, Peak: -1, Mean: -1, Samples: 1},
				{Start: 3, End: 3, Peak: -1, Mean: -1, Samples: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Segment(tt.column, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegment_InvalidInput(t *testing.T) {
	_, err := Segment(nil, 5)
	assert.ErrorIs(t, err, ErrEmptyColumn)

	_, err = Segment([]float64{}, 5)
	assert.ErrorIs(t, err, ErrEmptyColumn)

	_, err = Segment([]float64{1, 2, 3}, math.NaN())
	assert.ErrorIs(t, err, ErrBadThreshold)
}

func TestSegment_FullColumnStats(t *testing.T) {
	column := []float64{7, 9, 13, 9, 7}

	pulses, err := Segment(column, 7)
	require.NoError(t, err)
	require.Len(t, pulses, 1)

	p := pulses[0]
	assert.Equal(t, 0, p.Start)
	assert.Equal(t, len(column)-1, p.End)
	assert.Equal(t, 13.0, p.Peak)
	assert.InDelta(t, 9.0, p.Mean, 1e-12)
	assert.Equal(t, len(column), p.Samples)
}

// Pulses must be ordered, non-overlapping and exactly bounded: every
// in-range sample >= threshold, and the neighbouring samples (when they
// exist) strictly below.
func TestSegment_RoundTripInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(400)
		column := make([]float64, n)
		for i := range column {
			column[i] = rng.Float64() * 100
		}
		threshold := rng.Float64() * 100

		pulses, err := Segment(column, threshold)
		require.NoError(t, err)

		prevEnd := -1
		for _, p := range pulses {
			require.Greater(t, p.Start, prevEnd, "pulses must not overlap")
			require.LessOrEqual(t, p.Start, p.End)
			require.GreaterOrEqual(t, p.Len(), 1)

			for i := p.Start; i <= p.End; i++ {
				require.GreaterOrEqual(t, column[i], threshold)
			}
			if p.Start > 0 {
				require.Less(t, column[p.Start-1], threshold)
			}
			if p.End < n-1 {
				require.Less(t, column[p.End+1], threshold)
			}
			prevEnd = p.End
		}
	}
}

func BenchmarkSegment(b *testing.B) {
	column := make([]float64, 100_000)
	for i := range column {
		if i%100 < 10 {
			column[i] = 250
		} else {
			column[i] = 5
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Segment(column, 50); err != nil {
			b.Fatal(err)
		}
	}
}
