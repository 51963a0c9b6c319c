package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsecli/internal/config"
	"pulsecli/internal/store"
	"pulsecli/internal/table"
)

const testCSV = "Relative Time,Chn 1 Current,Chn 2 Current\n" +
	"0,0,0\n" +
	"0.1,80,10\n" +
	"0.2,90,10\n" +
	"0.3,0,70\n" +
	"0.4,0,60\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*AnalysisService, *config.Paths) {
	t.Helper()

	paths := config.PathsUnder(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	st := store.New(paths.DatabaseFile)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{Threshold: 50},
	}
	return NewAnalysisService(cfg, paths, st, testLogger()), paths
}

func TestAnalyzeUpload(t *testing.T) {
	svc, paths := newTestService(t)

	rr, err := svc.AnalyzeUpload(context.Background(), "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, rr.Run.Status)
	assert.Equal(t, "capture.csv", rr.Run.Filename)
	assert.Equal(t, 5, rr.Run.Samples)
	assert.Equal(t, 2, rr.Run.Channels)
	assert.Equal(t, 2, rr.Run.Pulses)
	assert.Equal(t, "Relative Time", rr.Run.TimeColumn)

	// Workbook written to the reports directory.
	assert.True(t, config.FileExists(rr.Run.ReportPath))
	assert.Equal(t, paths.ReportsDir, filepath.Dir(rr.Run.ReportPath))

	// Run recorded in history.
	got, err := svc.Run(context.Background(), rr.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Pulses)
}

func TestAnalyzeUploadCleansStagingDir(t *testing.T) {
	svc, paths := newTestService(t)

	rr, err := svc.AnalyzeUpload(context.Background(), "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{})
	require.NoError(t, err)

	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be removed")
	_ = rr
}

func TestAnalyzeUploadThresholdOverride(t *testing.T) {
	svc, _ := newTestService(t)

	threshold := 85.0
	rr, err := svc.AnalyzeUpload(context.Background(), "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{
		Threshold: &threshold,
	})
	require.NoError(t, err)

	// Only the 90 sample on Chn 1 clears 85.
	assert.Equal(t, 1, rr.Run.Pulses)
}

func TestAnalyzeUploadChannelSelection(t *testing.T) {
	svc, _ := newTestService(t)

	rr, err := svc.AnalyzeUpload(context.Background(), "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{
		Channels: []string{"Chn 2 Current"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rr.Run.Channels)
	assert.Equal(t, 1, rr.Run.Pulses)
	assert.Equal(t, "Chn 2 Current", rr.Result.Channels[0].Channel)
}

func TestAnalyzeUploadBadFileRecordsFailedRun(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AnalyzeUpload(context.Background(), "garbage.xlsx", strings.NewReader("not a workbook"), AnalyzeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrUnreadableFile)

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
	assert.Empty(t, runs[0].ReportPath)
}

func TestAnalyzeUploadUnknownChannel(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AnalyzeUpload(context.Background(), "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{
		Channels: []string{"Chn 9 Current"},
	})
	assert.ErrorIs(t, err, table.ErrNoSuchColumn)
}

func TestAnalyzeUploadMissingFilename(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AnalyzeUpload(context.Background(), "", strings.NewReader(testCSV), AnalyzeOptions{})
	assert.ErrorIs(t, err, ErrMissingFilename)
}

func TestPlot(t *testing.T) {
	svc, _ := newTestService(t)

	png, err := svc.Plot(context.Background(), "capture.csv", strings.NewReader(testCSV), "Chn 1 Current", AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestPlotUnknownChannel(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Plot(context.Background(), "capture.csv", strings.NewReader(testCSV), "Chn 9 Current", AnalyzeOptions{})
	assert.Error(t, err)
}

func TestReportFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rr, err := svc.AnalyzeUpload(ctx, "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{})
	require.NoError(t, err)

	path, err := svc.ReportFile(ctx, rr.Run.ID)
	require.NoError(t, err)
	assert.True(t, config.FileExists(path))
}

func TestReportFileUnknownRun(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReportFile(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportFileFailedRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AnalyzeUpload(ctx, "garbage.xlsx", strings.NewReader("not a workbook"), AnalyzeOptions{})
	require.Error(t, err)

	runs, err := svc.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	_, err = svc.ReportFile(ctx, runs[0].ID)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestRunsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AnalyzeUpload(ctx, "capture.csv", strings.NewReader(testCSV), AnalyzeOptions{})
		require.NoError(t, err)
	}

	runs, err := svc.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
