package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration. Values
// come from an optional YAML file overlaid with PULSE_* environment
// variables; environment wins.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"2m" validate:"gt=0"`

	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`

	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pulse.log"`
}

// AnalysisConfig configures the pulse detection pipeline.
type AnalysisConfig struct {
	// Threshold is the default activation threshold applied to every
	// channel without an explicit override.
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD" default:"50"`

	// ChannelThresholds maps channel names to per-channel thresholds.
	// File-configurable only.
	ChannelThresholds map[string]float64 `yaml:"channel_thresholds" envconfig:"-"`

	// Channels restricts segmentation to the named columns. Empty
	// means every numeric column except the time axis.
	Channels []string `yaml:"channels" envconfig:"CHANNELS"`

	// TimeColumn names the time axis; empty selects "Relative Time"
	// or, failing that, the first numeric column.
	TimeColumn string `yaml:"time_column" envconfig:"TIME_COLUMN"`

	// AnalyzerBin, when set, makes the web service run each request
	// through the analyze binary as a separate OS process instead of
	// in-process.
	AnalyzerBin string `yaml:"analyzer_bin" envconfig:"ANALYZER_BIN"`

	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"52428800" validate:"gt=0"`
}

// envPrefix namespaces all environment overrides.
const envPrefix = "PULSE"

// defaultsPrefix matches no environment variable, so processing with
// it applies the default tags alone.
const defaultsPrefix = "PULSE_TAG_DEFAULTS"

// configFileLocations are checked in order when no explicit path is
// given.
var configFileLocations = []string{
	"config.yaml",
	"configs/config.yaml",
}

// Load loads configuration from the config file (when present) and
// the environment, then validates the result.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path; an empty path
// skips the file layer.
//
// Precedence is environment over file over default tags. envconfig
// re-applies default tags on every Process call, so the file cannot
// simply be unmarshalled first and processed over: the layers are
// built separately and merged.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(defaultsPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		// Unmarshalling over the defaults replaces only the keys the
		// file actually sets.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	var fromEnv, defaults Config
	if err := envconfig.Process(envPrefix, &fromEnv); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := envconfig.Process(defaultsPrefix, &defaults); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}
	applyEnvOverrides(&cfg, fromEnv, defaults)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides copies onto cfg every field whose processed
// environment value differs from the bare defaults, i.e. every field
// a PULSE_* variable actually changed.
func applyEnvOverrides(cfg *Config, fromEnv, defaults Config) {
	if fromEnv.Server.Port != defaults.Server.Port {
		cfg.Server.Port = fromEnv.Server.Port
	}
	if fromEnv.Server.ReadTimeout != defaults.Server.ReadTimeout {
		cfg.Server.ReadTimeout = fromEnv.Server.ReadTimeout
	}
	if fromEnv.Server.WriteTimeout != defaults.Server.WriteTimeout {
		cfg.Server.WriteTimeout = fromEnv.Server.WriteTimeout
	}
	if fromEnv.Server.IdleTimeout != defaults.Server.IdleTimeout {
		cfg.Server.IdleTimeout = fromEnv.Server.IdleTimeout
	}
	if fromEnv.Server.ShutdownTimeout != defaults.Server.ShutdownTimeout {
		cfg.Server.ShutdownTimeout = fromEnv.Server.ShutdownTimeout
	}
	if fromEnv.Server.RequestTimeout != defaults.Server.RequestTimeout {
		cfg.Server.RequestTimeout = fromEnv.Server.RequestTimeout
	}
	if !slices.Equal(fromEnv.Server.AllowedOrigins, defaults.Server.AllowedOrigins) {
		cfg.Server.AllowedOrigins = fromEnv.Server.AllowedOrigins
	}
	if fromEnv.Server.RateLimit.Enabled != defaults.Server.RateLimit.Enabled {
		cfg.Server.RateLimit.Enabled = fromEnv.Server.RateLimit.Enabled
	}
	if fromEnv.Server.RateLimit.RPS != defaults.Server.RateLimit.RPS {
		cfg.Server.RateLimit.RPS = fromEnv.Server.RateLimit.RPS
	}
	if fromEnv.Server.RateLimit.Burst != defaults.Server.RateLimit.Burst {
		cfg.Server.RateLimit.Burst = fromEnv.Server.RateLimit.Burst
	}

	if fromEnv.Logging.Level != defaults.Logging.Level {
		cfg.Logging.Level = fromEnv.Logging.Level
	}
	if fromEnv.Logging.Output != defaults.Logging.Output {
		cfg.Logging.Output = fromEnv.Logging.Output
	}
	if fromEnv.Logging.FilePath != defaults.Logging.FilePath {
		cfg.Logging.FilePath = fromEnv.Logging.FilePath
	}

	if fromEnv.Paths.ExecutableDir != defaults.Paths.ExecutableDir {
		cfg.Paths.ExecutableDir = fromEnv.Paths.ExecutableDir
	}
	if fromEnv.Paths.DataDir != defaults.Paths.DataDir {
		cfg.Paths.DataDir = fromEnv.Paths.DataDir
	}
	if fromEnv.Paths.WebDir != defaults.Paths.WebDir {
		cfg.Paths.WebDir = fromEnv.Paths.WebDir
	}
	if fromEnv.Paths.LogsDir != defaults.Paths.LogsDir {
		cfg.Paths.LogsDir = fromEnv.Paths.LogsDir
	}

	if fromEnv.Analysis.Threshold != defaults.Analysis.Threshold {
		cfg.Analysis.Threshold = fromEnv.Analysis.Threshold
	}
	if !slices.Equal(fromEnv.Analysis.Channels, defaults.Analysis.Channels) {
		cfg.Analysis.Channels = fromEnv.Analysis.Channels
	}
	if fromEnv.Analysis.TimeColumn != defaults.Analysis.TimeColumn {
		cfg.Analysis.TimeColumn = fromEnv.Analysis.TimeColumn
	}
	if fromEnv.Analysis.AnalyzerBin != defaults.Analysis.AnalyzerBin {
		cfg.Analysis.AnalyzerBin = fromEnv.Analysis.AnalyzerBin
	}
	if fromEnv.Analysis.MaxUploadBytes != defaults.Analysis.MaxUploadBytes {
		cfg.Analysis.MaxUploadBytes = fromEnv.Analysis.MaxUploadBytes
	}
}

// Validate checks the configuration against the struct tags.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// ThresholdFor resolves the activation threshold for a channel.
func (a AnalysisConfig) ThresholdFor(channel string) float64 {
	if t, ok := a.ChannelThresholds[channel]; ok {
		return t
	}
	return a.Threshold
}

func findConfigFile() string {
	for _, loc := range configFileLocations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}
