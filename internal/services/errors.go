package services

import "errors"

// Analysis service errors
var (
	// ErrMissingFilename is returned when an upload carries no usable
	// file name.
	ErrMissingFilename = errors.New("upload has no filename")

	// ErrReportNotFound is returned when a run's workbook is missing
	// from the reports directory.
	ErrReportNotFound = errors.New("report file not found")
)
