package http

import (
	"context"
	"io"

	"pulsecli/internal/services"
	"pulsecli/internal/store"
)

// AnalysisServiceInterface defines the interface for analysis operations
type AnalysisServiceInterface interface {
	AnalyzeUpload(ctx context.Context, filename string, src io.Reader, opts services.AnalyzeOptions) (*services.RunReport, error)
	Plot(ctx context.Context, filename string, src io.Reader, channel string, opts services.AnalyzeOptions) ([]byte, error)
	Runs(ctx context.Context, limit int) ([]*store.Run, error)
	Run(ctx context.Context, id string) (*store.Run, error)
	ReportFile(ctx context.Context, id string) (string, error)
}
