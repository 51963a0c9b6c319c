// Package app bootstraps the pulse analysis web service: it loads
// configuration, initializes logging, opens the run history store,
// builds the chi router with the full middleware chain, and manages
// the HTTP server lifecycle including graceful shutdown.
//
// Route layout:
//
//	/metrics               Prometheus metrics (outside the middleware group)
//	/api/analyze           POST multipart upload, returns workbook or JSON
//	/api/plot              POST multipart upload, returns PNG preview
//	/api/runs              GET run history
//	/api/runs/{id}         GET one run
//	/api/runs/{id}/report  GET the annotated workbook
//	/api/health            GET health, /ready, /live
//	/api/version           GET version info
//	/                      embedded upload page (when a frontend FS is given)
package app
