package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"pulsecli/internal/config"
	"pulsecli/internal/store"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	store     *store.Store
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents one dependency check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version string, paths *config.Paths, st *store.Store, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		store:     st,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns full health information including dependency checks.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	checks := map[string]CheckResult{
		"reports_dir": s.checkDir(s.paths.ReportsDir),
		"uploads_dir": s.checkDir(s.paths.UploadsDir),
		"run_history": s.checkStore(ctx),
	}

	status := "healthy"
	for _, c := range checks {
		if c.Status != "up" {
			status = "degraded"
			break
		}
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(s.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
		},
		Checks: checks,
	}
}

// ReadinessCheck reports whether the service can accept analysis requests.
func (s *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := "ready"
	checks := map[string]CheckResult{
		"reports_dir": s.checkDir(s.paths.ReportsDir),
		"uploads_dir": s.checkDir(s.paths.UploadsDir),
	}
	for _, c := range checks {
		if c.Status != "up" {
			status = "not_ready"
			break
		}
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   s.version,
		Checks:    checks,
	}
}

// LivenessCheck reports that the process is alive.
func (s *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   s.version,
	}
}

// Version returns version information.
func (s *HealthService) Version() map[string]string {
	return map[string]string{
		"name":    config.AppName,
		"version": s.version,
	}
}

func (s *HealthService) checkDir(dir string) CheckResult {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return CheckResult{Status: "down", Message: err.Error()}
	case !info.IsDir():
		return CheckResult{Status: "down", Message: "not a directory"}
	default:
		return CheckResult{Status: "up"}
	}
}

func (s *HealthService) checkStore(ctx context.Context) CheckResult {
	if s.store == nil {
		return CheckResult{Status: "down", Message: "store not configured"}
	}
	if _, err := s.store.List(ctx, 1); err != nil {
		return CheckResult{Status: "down", Message: err.Error()}
	}
	return CheckResult{Status: "up"}
}
