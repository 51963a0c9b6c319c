// Package analysis binds table loading to pulse segmentation. It
// selects the time axis and signal channels of a loaded table, runs
// threshold detection on each channel concurrently, and enriches the
// raw sample-index pulses with times and durations taken from the
// time column.
package analysis
