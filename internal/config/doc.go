// Package config provides centralized configuration management for the
// pulse analysis tools. It handles loading configuration from multiple
// sources, validation, and provides a type-safe API for accessing
// configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PULSE_* for namespacing:
//
//	PULSE_SERVER_PORT=8080
//	PULSE_LOGGING_LEVEL=debug
//	PULSE_ANALYSIS_THRESHOLD=40
//	PULSE_ANALYSIS_TIME_COLUMN="Relative Time"
//
// Per-channel threshold overrides are map-valued and therefore only
// settable through the config file:
//
//	analysis:
//	  threshold: 50
//	  channel_thresholds:
//	    "Chn 1 Current": 35
//
// # Path Management
//
// The package provides centralized path management through the Paths type.
// The configured directories resolve relative to the executable location:
//
//	paths, err := cfg.GetPaths()
//	reportPath := paths.GetReportPath("pulse_summary.xlsx")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
