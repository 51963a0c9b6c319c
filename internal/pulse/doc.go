// Package pulse implements threshold-based pulse segmentation over a
// single channel of numeric samples.
//
// A pulse is a maximal contiguous run of samples whose value is at or
// above the configured threshold. Segmentation is a single linear pass
// with no shared state; the result is an ordered, non-overlapping list
// of pulses with per-pulse summary statistics.
package pulse
