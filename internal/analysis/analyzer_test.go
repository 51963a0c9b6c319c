package analysis

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsecli/internal/config"
	"pulsecli/internal/table"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTable builds a two-channel table with a 10 Hz time axis.
func testTable(t *testing.T) *table.Table {
	t.Helper()
	return table.New([]*table.Column{
		{
			Name:   "Relative Time",
			Text:   []string{"0", "0.1", "0.2", "0.3", "0.4", "0.5"},
			Values: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5},
		},
		{
			Name:   "Chn 1 Current",
			Text:   []string{"0", "80", "90", "10", "60", "0"},
			Values: []float64{0, 80, 90, 10, 60, 0},
		},
		{
			Name:   "Chn 2 Current",
			Text:   []string{"0", "0", "0", "0", "0", "0"},
			Values: []float64{0, 0, 0, 0, 0, 0},
		},
	})
}

func TestAnalyze_DetectsPulsesPerChannel(t *testing.T) {
	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())

	result, err := a.Analyze(context.Background(), testTable(t))
	require.NoError(t, err)

	assert.Equal(t, "Relative Time", result.TimeColumn)
	assert.Equal(t, 6, result.Samples)
	require.Len(t, result.Channels, 2)

	ch1 := result.Channels[0]
	assert.Equal(t, "Chn 1 Current", ch1.Channel)
	assert.Equal(t, 50.0, ch1.Threshold)
	require.Len(t, ch1.Pulses, 2)

	first := ch1.Pulses[0]
	assert.Equal(t, 1, first.Start)
	assert.Equal(t, 2, first.End)
	assert.Equal(t, 90.0, first.Peak)
	assert.InDelta(t, 85.0, first.Mean, 1e-9)
	assert.InDelta(t, 0.1, first.StartTime, 1e-9)
	assert.InDelta(t, 0.2, first.EndTime, 1e-9)
	assert.InDelta(t, 0.1, first.Duration, 1e-9)

	second := ch1.Pulses[1]
	assert.Equal(t, 4, second.Start)
	assert.Equal(t, 4, second.End)

	assert.Equal(t, 90.0, ch1.MaxPeak)
	assert.Equal(t, 60.0, ch1.MinPeak)
	assert.InDelta(t, 75.0, ch1.MeanPeak, 1e-9)

	// Quiet channel yields an empty, non-nil pulse list.
	ch2 := result.Channels[1]
	assert.Equal(t, "Chn 2 Current", ch2.Channel)
	assert.NotNil(t, ch2.Pulses)
	assert.Empty(t, ch2.Pulses)

	assert.Equal(t, 2, result.TotalPulses())
}

func TestAnalyze_TimeStats(t *testing.T) {
	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())

	result, err := a.Analyze(context.Background(), testTable(t))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result.Duration, 1e-9)
	assert.InDelta(t, 10.0, result.SamplingRate, 1e-6)
}

func TestAnalyze_PerChannelThresholds(t *testing.T) {
	a := New(config.AnalysisConfig{
		Threshold: 50,
		ChannelThresholds: map[string]float64{
			"Chn 1 Current": 85,
		},
	}, testLogger())

	result, err := a.Analyze(context.Background(), testTable(t))
	require.NoError(t, err)

	ch1 := result.Channels[0]
	assert.Equal(t, 85.0, ch1.Threshold)
	// Only the 90 sample clears the raised threshold.
	require.Len(t, ch1.Pulses, 1)
	assert.Equal(t, 2, ch1.Pulses[0].Start)
	assert.Equal(t, 2, ch1.Pulses[0].End)
}

func TestAnalyze_ExplicitChannels(t *testing.T) {
	a := New(config.AnalysisConfig{
		Threshold: 50,
		Channels:  []string{"Chn 2 Current"},
	}, testLogger())

	result, err := a.Analyze(context.Background(), testTable(t))
	require.NoError(t, err)

	require.Len(t, result.Channels, 1)
	assert.Equal(t, "Chn 2 Current", result.Channels[0].Channel)
}

func TestAnalyze_UnknownChannel(t *testing.T) {
	a := New(config.AnalysisConfig{
		Threshold: 50,
		Channels:  []string{"Chn 9 Current"},
	}, testLogger())

	_, err := a.Analyze(context.Background(), testTable(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrNoSuchColumn)
}

func TestAnalyze_TextChannelRejected(t *testing.T) {
	tbl := table.New([]*table.Column{
		{
			Name:   "Relative Time",
			Text:   []string{"0", "0.1"},
			Values: []float64{0, 0.1},
		},
		{
			Name: "Notes",
			Text: []string{"warmup", "steady"},
		},
	})

	a := New(config.AnalysisConfig{
		Threshold: 50,
		Channels:  []string{"Notes"},
	}, testLogger())

	_, err := a.Analyze(context.Background(), tbl)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrNotNumeric)
}

func TestAnalyze_NoSignalChannels(t *testing.T) {
	tbl := table.New([]*table.Column{
		{
			Name: "Notes",
			Text: []string{"a", "b"},
		},
	})

	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())
	_, err := a.Analyze(context.Background(), tbl)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrNotNumeric)
}

func TestAnalyze_ConfiguredTimeColumn(t *testing.T) {
	tbl := table.New([]*table.Column{
		{
			Name:   "t_ms",
			Text:   []string{"0", "100", "200"},
			Values: []float64{0, 100, 200},
		},
		{
			Name:   "Chn 1 Current",
			Text:   []string{"0", "75", "0"},
			Values: []float64{0, 75, 0},
		},
	})

	a := New(config.AnalysisConfig{Threshold: 50, TimeColumn: "t_ms"}, testLogger())
	result, err := a.Analyze(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, "t_ms", result.TimeColumn)
	require.Len(t, result.Channels, 1)
	require.Len(t, result.Channels[0].Pulses, 1)
	assert.InDelta(t, 100.0, result.Channels[0].Pulses[0].StartTime, 1e-9)
}

func TestAnalyze_NaNInTimeAxisFallsBackToIndex(t *testing.T) {
	tbl := table.New([]*table.Column{
		{
			Name:   "Relative Time",
			Text:   []string{"0", "", "0.2"},
			Values: []float64{0, math.NaN(), 0.2},
		},
		{
			Name:   "Chn 1 Current",
			Text:   []string{"0", "75", "0"},
			Values: []float64{0, 75, 0},
		},
	})

	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())
	result, err := a.Analyze(context.Background(), tbl)
	require.NoError(t, err)

	p := result.Channels[0].Pulses[0]
	// The missing time cell at index 1 degrades to the index itself.
	assert.Equal(t, 1.0, p.StartTime)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())
	_, err := a.Analyze(ctx, testTable(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.csv")
	csv := "Relative Time,Chn 1 Current\n0,0\n0.1,80\n0.2,90\n0.3,0\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())
	result, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, result.Source)
	require.Len(t, result.Channels, 1)
	require.Len(t, result.Channels[0].Pulses, 1)
}

func TestAnalyzeFile_Unreadable(t *testing.T) {
	a := New(config.AnalysisConfig{Threshold: 50}, testLogger())
	_, err := a.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrUnreadableFile)
}
