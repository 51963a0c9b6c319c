package config

// Application constants for the pulse analysis tools.
const (
	// Application Info
	AppName    = "pulsecli"
	AppVersion = "1.2.0"

	// TimeColumnName is the column the analyzer prefers as the time
	// axis when no time column is configured.
	TimeColumnName = "Relative Time"

	// PulseColumnName suffixes the per-channel annotation columns the
	// report writer appends to the All Data sheet.
	PulseColumnName = "Pulse #"

	// API Endpoints
	APIBasePath     = "/api"
	MetricsEndpoint = "/metrics"
)
