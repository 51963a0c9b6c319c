package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"pulsecli/internal/analysis"
	"pulsecli/internal/config"
	"pulsecli/internal/report"
	"pulsecli/internal/validation"
)

// stringList collects repeatable -channel flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// options holds the parsed command line.
type options struct {
	in          string
	out         string
	threshold   float64
	hasThresh   bool
	channels    stringList
	timeColumn  string
	configPath  string
	plot        string
	plotChannel string
	jsonOut     bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)

	fs.StringVar(&opts.in, "in", "", "input file (.csv, .xlsx, .xls or .edf)")
	fs.StringVar(&opts.out, "out", "", "output workbook path (defaults to <input>_pulses.xlsx)")
	fs.Float64Var(&opts.threshold, "threshold", 0, "activation threshold (overrides config)")
	fs.Var(&opts.channels, "channel", "channel to segment, repeatable (default: all numeric columns)")
	fs.StringVar(&opts.timeColumn, "time-column", "", "name of the time axis column")
	fs.StringVar(&opts.configPath, "config", "", "config file path")
	fs.StringVar(&opts.plot, "plot", "", "also write a PNG preview to this path")
	fs.StringVar(&opts.plotChannel, "plot-channel", "", "channel to plot (default: first analyzed channel)")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the result as JSON on stdout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			opts.hasThresh = true
		}
	})

	if opts.in == "" {
		fs.Usage()
		return nil, fmt.Errorf("-in is required")
	}
	if opts.out == "" {
		opts.out = defaultOutPath(opts.in)
	}
	return opts, nil
}

// defaultOutPath derives the workbook path from the input file name.
func defaultOutPath(in string) string {
	base := strings.TrimSuffix(in, filepath.Ext(in))
	return base + "_pulses.xlsx"
}

// analysisConfig overlays the command line on the configured defaults.
func analysisConfig(cfg config.AnalysisConfig, opts *options) config.AnalysisConfig {
	if opts.hasThresh {
		cfg.Threshold = opts.threshold
		cfg.ChannelThresholds = nil
	}
	if len(opts.channels) > 0 {
		cfg.Channels = opts.channels
	}
	if opts.timeColumn != "" {
		cfg.TimeColumn = opts.timeColumn
	}
	return cfg
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("analyze failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Logs go to stderr so -json output on stdout stays clean.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputFile(opts.in); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(filepath.Dir(opts.out)); err != nil {
		return err
	}

	analyzer := analysis.New(analysisConfig(cfg.Analysis, opts), logger)
	result, err := analyzer.AnalyzeFile(ctx, opts.in)
	if err != nil {
		return err
	}

	if err := report.WriteWorkbook(opts.out, result); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	logger.Info("workbook written", slog.String("path", opts.out))

	if opts.plot != "" {
		png, err := report.RenderPNG(result, opts.plotChannel)
		if err != nil {
			return fmt.Errorf("rendering plot: %w", err)
		}
		if err := os.WriteFile(opts.plot, png, 0644); err != nil {
			return fmt.Errorf("writing plot: %w", err)
		}
		logger.Info("plot written", slog.String("path", opts.plot))
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(os.Stdout, result)
	return nil
}

// printSummary writes a human readable result table.
func printSummary(w *os.File, result *analysis.Result) {
	fmt.Fprintf(w, "Analyzed %s samples", humanize.Comma(int64(result.Samples)))
	if result.TimeColumn != "" {
		fmt.Fprintf(w, " (time axis: %s", result.TimeColumn)
		if result.SamplingRate > 0 {
			fmt.Fprintf(w, ", %.6g Hz", result.SamplingRate)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)

	for _, ch := range result.Channels {
		fmt.Fprintf(w, "\n%s (threshold %.6g): %d pulse(s)\n", ch.Channel, ch.Threshold, ch.Count())
		for i, p := range ch.Pulses {
			fmt.Fprintf(w, "  #%d  rows %d-%d  peak %.6g  mean %.6g  %d sample(s)\n",
				i+1, p.Start, p.End, p.Peak, p.Mean, p.Samples)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d pulse(s) across %d channel(s)\n",
		result.TotalPulses(), len(result.Channels))
}
