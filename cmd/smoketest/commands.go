package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"smoketest/pkg/executor"
	"smoketest/pkg/reporter"
	"smoketest/pkg/suite"
)

type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "c", "", "Path to config YAML file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) runCommand(args []string) int {
	var common commonFlags
	fs := a.newFlagSet("run")
	common.register(fs)
	suitePath := fs.String("f", "", "Path to suite YAML file (required)")
	only := fs.String("only", "", "Comma separated check indices to run (zero based)")
	format := fs.String("format", "", "Output format (table, json); overrides the config file")
	outPath := fs.String("o", "", "Write the report to this file instead of stdout")
	metrics := fs.String("metrics", "", "Write Prometheus textfile metrics to this path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *suitePath == "" {
		fmt.Fprintln(a.stderr, "suite file path is required (-f)")
		fs.PrintDefaults()
		return 2
	}
	if err := a.setup(common.configPath, common.logLevel); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}

	slog.Info("Loading suite", "path", *suitePath)
	s, err := suite.Load(*suitePath, a.registry)
	if err != nil {
		slog.Error("Failed to load suite", "path", *suitePath, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := executor.NewRunner(&executor.Options{
		CheckTimeout: a.cfg.CheckTimeoutDuration(),
		Env:          a.environment(),
	})

	var result *executor.ExecutionResult
	if *only != "" {
		indices, err := parseIndices(*only)
		if err != nil {
			slog.Error("Invalid -only value", "error", err)
			return 2
		}
		result, err = runner.RunSelected(ctx, s, indices)
		if err != nil {
			slog.Error("Failed to run selection", "error", err)
			return 2
		}
	} else {
		result = runner.Run(ctx, s)
	}

	if *format == "" {
		*format = a.cfg.Output.Format
	}
	if *outPath == "" {
		*outPath = a.cfg.Output.Path
	}
	if err := a.writeReport(result, *format, *outPath); err != nil {
		slog.Error("Failed to write report", "error", err)
		return 1
	}

	if *metrics == "" {
		*metrics = a.cfg.Output.MetricsFile
	}
	if *metrics != "" {
		if err := reporter.WriteMetrics(result, *metrics); err != nil {
			slog.Error("Failed to write metrics", "error", err)
			return 1
		}
	}

	if !result.Success {
		return 1
	}
	return 0
}

func (a *app) writeReport(result *executor.ExecutionResult, format, path string) error {
	var w io.Writer = a.stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file '%s': %w", path, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return reporter.WriteJSON(result, w)
	case "table", "":
		reporter.PrintResult(result, w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (a *app) listCommand(args []string) int {
	var common commonFlags
	fs := a.newFlagSet("list")
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := a.setup(common.configPath, common.logLevel); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}

	reporter.PrintVariants(a.registry.Variants(), a.stdout)
	return 0
}

func (a *app) examplesCommand(args []string) int {
	var common commonFlags
	fs := a.newFlagSet("examples")
	common.register(fs)
	outPath := fs.String("o", "", "Write the suite to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := a.setup(common.configPath, common.logLevel); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}

	s := suite.FromExamples(a.registry)
	if *outPath != "" {
		if err := suite.Save(s, *outPath); err != nil {
			slog.Error("Failed to save examples", "error", err)
			return 1
		}
		slog.Info("Examples written", "path", *outPath, "checks", s.Len())
		return 0
	}

	data, err := suite.Marshal(s)
	if err != nil {
		slog.Error("Failed to encode examples", "error", err)
		return 1
	}
	a.stdout.Write(data)
	return 0
}

func (a *app) validateCommand(args []string) int {
	var common commonFlags
	fs := a.newFlagSet("validate")
	common.register(fs)
	suitePath := fs.String("f", "", "Path to suite YAML file (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *suitePath == "" {
		fmt.Fprintln(a.stderr, "suite file path is required (-f)")
		return 2
	}
	if err := a.setup(common.configPath, common.logLevel); err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}

	s, err := suite.Load(*suitePath, a.registry)
	if err != nil {
		fmt.Fprintln(a.stdout, err)
		return 1
	}
	if err := s.Validate(); err != nil {
		fmt.Fprintln(a.stdout, err)
		return 1
	}
	fmt.Fprintf(a.stdout, "%s: %d checks OK\n", s.Name, s.Len())
	return 0
}

func parseIndices(s string) ([]int, error) {
	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q: %w", part, err)
		}
		indices = append(indices, i)
	}
	return indices, nil
}
