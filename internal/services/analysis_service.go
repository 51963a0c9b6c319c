package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"pulsecli/internal/analysis"
	"pulsecli/internal/config"
	"pulsecli/internal/report"
	"pulsecli/internal/store"
	"pulsecli/internal/validation"
)

// AnalyzeOptions carries per-request overrides of the configured
// analysis defaults. Nil or empty fields keep the configured value.
type AnalyzeOptions struct {
	Threshold  *float64
	Channels   []string
	TimeColumn string
}

// RunReport is the outcome of one analysis run: the persisted record
// plus the full in-memory result.
type RunReport struct {
	Run    *store.Run
	Result *analysis.Result
}

// AnalysisService stages uploads, runs pulse detection, writes the
// annotated workbook and records run history.
type AnalysisService struct {
	cfg       *config.Config
	paths     *config.Paths
	store     *store.Store
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewAnalysisService creates the analysis service.
func NewAnalysisService(cfg *config.Config, paths *config.Paths, st *store.Store, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cfg:       cfg,
		paths:     paths,
		store:     st,
		validator: validation.NewFileValidator(logger),
		logger:    logger.With(slog.String("service", "analysis")),
	}
}

// AnalyzeUpload runs the full pipeline for one uploaded file: stage it
// under a per-run directory, detect pulses, write the workbook to the
// reports directory and record the run. The staging directory is
// removed before returning, success or not.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, filename string, src io.Reader, opts AnalyzeOptions) (*RunReport, error) {
	runID := uuid.New().String()
	started := time.Now()

	staged, cleanup, err := s.stageUpload(runID, filename, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	reportPath := s.paths.GetReportPathForRun(runID, started)
	analysisCfg := s.analysisConfig(opts)

	var result *analysis.Result
	if analysisCfg.AnalyzerBin != "" {
		result, err = s.analyzeExternal(ctx, analysisCfg, staged, reportPath)
	} else {
		result, err = s.analyzeInProcess(ctx, analysisCfg, staged, reportPath)
	}

	run := &store.Run{
		ID:         runID,
		Filename:   filepath.Base(filename),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		run.Status = store.StatusFailed
		run.Error = err.Error()
		s.recordRun(ctx, run)
		return nil, err
	}

	run.Status = store.StatusCompleted
	run.ReportPath = reportPath
	run.TimeColumn = result.TimeColumn
	run.Samples = result.Samples
	run.Channels = len(result.Channels)
	run.Pulses = result.TotalPulses()
	s.recordRun(ctx, run)

	s.logger.InfoContext(ctx, "analysis run completed",
		slog.String("run_id", runID),
		slog.String("filename", run.Filename),
		slog.String("samples", humanize.Comma(int64(run.Samples))),
		slog.Int("channels", run.Channels),
		slog.Int("pulses", run.Pulses),
		slog.Duration("took", run.FinishedAt.Sub(run.StartedAt)))

	return &RunReport{Run: run, Result: result}, nil
}

// Plot analyzes the upload and renders a PNG preview of one channel.
// Plots are always rendered in-process; they never touch the run
// history or the reports directory.
func (s *AnalysisService) Plot(ctx context.Context, filename string, src io.Reader, channel string, opts AnalyzeOptions) ([]byte, error) {
	staged, cleanup, err := s.stageUpload(uuid.New().String(), filename, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	analyzer := analysis.New(s.analysisConfig(opts), s.logger)
	result, err := analyzer.AnalyzeFile(ctx, staged)
	if err != nil {
		return nil, err
	}
	return report.RenderPNG(result, channel)
}

// Runs returns recent run history, most recent first.
func (s *AnalysisService) Runs(ctx context.Context, limit int) ([]*store.Run, error) {
	return s.store.List(ctx, limit)
}

// Run returns one run by ID, or store.ErrNotFound.
func (s *AnalysisService) Run(ctx context.Context, id string) (*store.Run, error) {
	return s.store.Get(ctx, id)
}

// ReportFile resolves the workbook path for a run, refusing paths that
// escape the reports directory.
func (s *AnalysisService) ReportFile(ctx context.Context, id string) (string, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if run.ReportPath == "" {
		return "", ErrReportNotFound
	}

	abs, err := filepath.Abs(run.ReportPath)
	if err != nil {
		return "", fmt.Errorf("resolving report path: %w", err)
	}
	reportsDir, err := filepath.Abs(s.paths.ReportsDir)
	if err != nil {
		return "", fmt.Errorf("resolving reports directory: %w", err)
	}
	if filepath.Dir(abs) != reportsDir {
		return "", ErrReportNotFound
	}
	if !config.FileExists(abs) {
		return "", ErrReportNotFound
	}
	return abs, nil
}

// stageUpload copies src into a per-run directory under uploads and
// returns the staged path plus a cleanup func that removes the whole
// directory.
func (s *AnalysisService) stageUpload(runID, filename string, src io.Reader) (string, func(), error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", nil, ErrMissingFilename
	}
	if err := s.validator.ValidateUploadName(base); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrMissingFilename, err)
	}

	dir := filepath.Join(s.paths.UploadsDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("creating staging directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove staging directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	}

	staged := filepath.Join(dir, base)
	dst, err := os.Create(staged)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("creating staged file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("staging upload: %w", err)
	}

	s.logger.Debug("upload staged",
		slog.String("file", staged),
		slog.String("size", humanize.Bytes(uint64(written))))

	return staged, cleanup, nil
}

// analysisConfig overlays request options on the configured defaults.
func (s *AnalysisService) analysisConfig(opts AnalyzeOptions) config.AnalysisConfig {
	cfg := s.cfg.Analysis
	if opts.Threshold != nil {
		cfg.Threshold = *opts.Threshold
		// An explicit request threshold replaces the per-channel
		// overrides too.
		cfg.ChannelThresholds = nil
	}
	if len(opts.Channels) > 0 {
		cfg.Channels = opts.Channels
	}
	if opts.TimeColumn != "" {
		cfg.TimeColumn = opts.TimeColumn
	}
	return cfg
}

func (s *AnalysisService) analyzeInProcess(ctx context.Context, cfg config.AnalysisConfig, staged, reportPath string) (*analysis.Result, error) {
	analyzer := analysis.New(cfg, s.logger)
	result, err := analyzer.AnalyzeFile(ctx, staged)
	if err != nil {
		return nil, err
	}
	if err := report.WriteWorkbook(reportPath, result); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return result, nil
}

// analyzeExternal delegates the run to the analyze binary in a child
// process. The binary writes the workbook itself and prints the result
// as JSON on stdout. Per-channel threshold overrides do not cross the
// process boundary; only the effective global threshold is passed.
func (s *AnalysisService) analyzeExternal(ctx context.Context, cfg config.AnalysisConfig, staged, reportPath string) (*analysis.Result, error) {
	args := []string{
		"-in", staged,
		"-out", reportPath,
		"-threshold", strconv.FormatFloat(cfg.Threshold, 'g', -1, 64),
		"-json",
	}
	if cfg.TimeColumn != "" {
		args = append(args, "-time-column", cfg.TimeColumn)
	}
	for _, ch := range cfg.Channels {
		args = append(args, "-channel", ch)
	}

	cmd := exec.CommandContext(ctx, cfg.AnalyzerBin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running analyzer subprocess",
		slog.String("bin", cfg.AnalyzerBin),
		slog.Any("args", args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("analyzer subprocess failed: %w, output: %s", err, stderr.String())
	}

	var result analysis.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("decoding analyzer output: %w", err)
	}
	return &result, nil
}

// recordRun persists the run record. History is best-effort: a storage
// failure is logged but never fails the request. The insert survives
// request cancellation so failed runs still show up in history.
func (s *AnalysisService) recordRun(ctx context.Context, run *store.Run) {
	if err := s.store.Insert(context.WithoutCancel(ctx), run); err != nil {
		s.logger.ErrorContext(ctx, "failed to record run",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()))
	}
}
