package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"pulsecli/internal/config"
	"pulsecli/internal/pulse"
	"pulsecli/internal/table"
)

// Pulse is a detected pulse enriched with time information from the
// table's time axis. Times are in the time column's own unit (seconds
// for the loaders that synthesize one). When the table has no usable
// time axis the time fields hold the sample indices instead.
type Pulse struct {
	pulse.Pulse
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
}

// ChannelResult holds the pulses of one signal channel.
type ChannelResult struct {
	Channel   string  `json:"channel"`
	Threshold float64 `json:"threshold"`
	Pulses    []Pulse `json:"pulses"`
	MaxPeak   float64 `json:"max_peak"`
	MinPeak   float64 `json:"min_peak"`
	MeanPeak  float64 `json:"mean_peak"`
}

// Count returns the number of detected pulses.
func (c ChannelResult) Count() int {
	return len(c.Pulses)
}

// Result is the complete outcome of analyzing one table.
type Result struct {
	Source       string          `json:"source,omitempty"`
	TimeColumn   string          `json:"time_column"`
	Samples      int             `json:"samples"`
	Duration     float64         `json:"duration"`
	SamplingRate float64         `json:"sampling_rate"`
	Channels     []ChannelResult `json:"channels"`
	Elapsed      time.Duration   `json:"-"`

	// Table keeps the loaded data around for the report writer.
	Table *table.Table `json:"-"`
}

// TotalPulses sums pulse counts across all channels.
func (r *Result) TotalPulses() int {
	n := 0
	for _, ch := range r.Channels {
		n += len(ch.Pulses)
	}
	return n
}

// Analyzer runs threshold detection over the signal channels of a table.
type Analyzer struct {
	cfg    config.AnalysisConfig
	logger *slog.Logger
}

// New creates an analyzer with the given configuration.
func New(cfg config.AnalysisConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// AnalyzeFile loads path and analyzes the resulting table.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	t, err := table.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	result, err := a.Analyze(ctx, t)
	if err != nil {
		return nil, err
	}
	result.Source = path
	return result, nil
}

// Analyze segments every configured channel of t. Channels run
// concurrently; the first failing channel cancels the rest.
func (a *Analyzer) Analyze(ctx context.Context, t *table.Table) (*Result, error) {
	start := time.Now()

	timeCol, times, err := a.timeAxis(t)
	if err != nil {
		return nil, err
	}

	channels, err := a.channelNames(t, timeCol)
	if err != nil {
		return nil, err
	}

	results := make([]ChannelResult, len(channels))
	g, ctx := errgroup.WithContext(ctx)

	for i, name := range channels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			values, err := t.Numeric(name)
			if err != nil {
				return fmt.Errorf("channel %q: %w", name, err)
			}

			threshold := a.cfg.ThresholdFor(name)
			raw, err := pulse.Segment(values, threshold)
			if err != nil {
				return fmt.Errorf("channel %q: %w", name, err)
			}

			results[i] = buildChannelResult(name, threshold, raw, times)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		TimeColumn: timeCol,
		Samples:    t.Rows(),
		Channels:   results,
		Elapsed:    time.Since(start),
		Table:      t,
	}
	result.Duration, result.SamplingRate = timeStats(times)

	a.logger.Info("analysis complete",
		slog.Int("channels", len(channels)),
		slog.Int("pulses", result.TotalPulses()),
		slog.Int("samples", result.Samples),
		slog.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// timeAxis resolves the time column and its values. Explicit
// configuration wins; otherwise the conventional "Relative Time"
// column, then the first numeric column. A table with no numeric
// columns gets a synthetic index axis.
func (a *Analyzer) timeAxis(t *table.Table) (string, []float64, error) {
	if a.cfg.TimeColumn != "" {
		values, err := t.Numeric(a.cfg.TimeColumn)
		if err != nil {
			return "", nil, fmt.Errorf("time column %q: %w", a.cfg.TimeColumn, err)
		}
		return a.cfg.TimeColumn, values, nil
	}

	if values, err := t.Numeric(config.TimeColumnName); err == nil {
		return config.TimeColumnName, values, nil
	}

	if names := t.NumericNames(); len(names) > 0 {
		values, err := t.Numeric(names[0])
		if err == nil {
			return names[0], values, nil
		}
	}

	// Fall back to sample indices.
	values := make([]float64, t.Rows())
	for i := range values {
		values[i] = float64(i)
	}
	return "", values, nil
}

// channelNames resolves the set of channels to segment.
func (a *Analyzer) channelNames(t *table.Table, timeCol string) ([]string, error) {
	if len(a.cfg.Channels) > 0 {
		for _, name := range a.cfg.Channels {
			if _, err := t.Numeric(name); err != nil {
				return nil, fmt.Errorf("channel %q: %w", name, err)
			}
		}
		return a.cfg.Channels, nil
	}

	var names []string
	for _, name := range t.NumericNames() {
		if name != timeCol {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no signal channels: %w", table.ErrNotNumeric)
	}
	return names, nil
}

// buildChannelResult converts raw pulses to timed pulses and computes
// per-channel peak statistics.
func buildChannelResult(name string, threshold float64, raw []pulse.Pulse, times []float64) ChannelResult {
	pulses := make([]Pulse, len(raw))
	var peakSum, peakMax, peakMin float64

	for i, p := range raw {
		startT := timeAt(times, p.Start)
		endT := timeAt(times, p.End)
		pulses[i] = Pulse{
			Pulse:     p,
			StartTime: startT,
			EndTime:   endT,
			Duration:  endT - startT,
		}
		peakSum += p.Peak
		if i == 0 || p.Peak > peakMax {
			peakMax = p.Peak
		}
		if i == 0 || p.Peak < peakMin {
			peakMin = p.Peak
		}
	}

	res := ChannelResult{
		Channel:   name,
		Threshold: threshold,
		Pulses:    pulses,
		MaxPeak:   peakMax,
		MinPeak:   peakMin,
	}
	if len(raw) > 0 {
		res.MeanPeak = peakSum / float64(len(raw))
	}
	return res
}

// timeAt reads the time axis at index i, falling back to the index
// itself when the cell is missing or NaN.
func timeAt(times []float64, i int) float64 {
	if i >= 0 && i < len(times) && !math.IsNaN(times[i]) {
		return times[i]
	}
	return float64(i)
}

// timeStats derives total duration and median sampling rate from the
// time axis. Non-monotonic or NaN-ridden axes yield zeros.
func timeStats(times []float64) (duration, rate float64) {
	var deltas []float64
	prev := math.NaN()
	first, last := math.NaN(), math.NaN()

	for _, v := range times {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(first) {
			first = v
		}
		last = v
		if !math.IsNaN(prev) && v > prev {
			deltas = append(deltas, v-prev)
		}
		prev = v
	}

	if !math.IsNaN(first) && last > first {
		duration = last - first
	}
	if len(deltas) > 0 {
		sort.Float64s(deltas)
		if dt := deltas[len(deltas)/2]; dt > 0 {
			rate = 1 / dt
		}
	}
	return duration, rate
}
