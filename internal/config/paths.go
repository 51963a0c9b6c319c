package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	WebDir        string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Paths contains all the application paths.
// This is the single source of truth for ALL file paths in the application.
type Paths struct {
	ExecutableDir string
	WebDir        string
	DataDir       string
	UploadsDir    string
	ReportsDir    string
	LogsDir       string

	// DatabaseFile holds the run history.
	DatabaseFile string
}

// GetPaths resolves the configured directories into the application
// path set. The root is the configured executable_dir or, when unset,
// the directory of the running executable — never the current working
// directory, so the tool behaves the same from any shell.
func (c *Config) GetPaths() (*Paths, error) {
	root := c.Paths.ExecutableDir
	if root == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %v", err)
		}

		// Resolve symlinks to get the actual executable location
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
		}
		root = filepath.Dir(exe)
	}
	return c.Paths.Under(root), nil
}

// Under builds the path set rooted at dir. Relative configured
// directories resolve against dir; absolute ones are kept as given.
// Default layout:
//
//	<root>/
//	  ├── data/
//	  │   ├── uploads/     (files received over HTTP)
//	  │   ├── reports/     (annotated workbooks and plots)
//	  │   └── runs.db      (run history)
//	  ├── logs/
//	  └── web/             (frontend assets)
func (pc PathsConfig) Under(dir string) *Paths {
	dataDir := resolveDir(dir, pc.DataDir, "data")

	return &Paths{
		ExecutableDir: dir,
		DataDir:       dataDir,
		WebDir:        resolveDir(dir, pc.WebDir, "web"),
		UploadsDir:    filepath.Join(dataDir, "uploads"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		LogsDir:       resolveDir(dir, pc.LogsDir, "logs"),
		DatabaseFile:  filepath.Join(dataDir, "runs.db"),
	}
}

// PathsUnder builds the default-layout path set rooted at dir.
func PathsUnder(dir string) *Paths {
	return PathsConfig{}.Under(dir)
}

func resolveDir(root, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetUploadPath returns the path for an uploaded file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetReportPathForRun returns the workbook path for an analysis run.
func (p *Paths) GetReportPathForRun(runID string, started time.Time) string {
	filename := fmt.Sprintf("pulse_%s_%s.xlsx", started.Format("20060102_150405"), runID)
	return filepath.Join(p.ReportsDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.String("database", p.DatabaseFile))
}
