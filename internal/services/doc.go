// Package services implements the business logic layer between the
// HTTP handlers and the analysis pipeline.
//
// AnalysisService owns the full lifecycle of an analysis run: staging
// the uploaded file into a per-run directory, running pulse detection
// (in-process or through the analyze binary as a subprocess), writing
// the annotated workbook, and recording the run in the history store.
// The staging directory is removed when the run finishes, whatever the
// outcome.
//
// HealthService reports liveness, readiness and runtime information
// for the web service.
//
// Services return domain errors (table, pulse and store sentinels)
// unchanged so the transport layer can map them to problem responses.
package services
