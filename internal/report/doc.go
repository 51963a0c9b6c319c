// Package report renders analysis results into deliverable artifacts:
// an annotated Excel workbook with the raw data, a per-pulse summary
// and an embedded line chart, and a PNG plot of a single channel with
// its detected pulse peaks marked.
package report
