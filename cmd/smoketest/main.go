// Package main implements the command-line interface for smoketest.
// It loads the configuration, discovers check plugins, and dispatches to the
// run, list, examples and validate commands.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"smoketest/pkg/checks"
	"smoketest/pkg/config"
)

const usage = `Usage: smoketest <command> [flags]

Commands:
  run       Run a suite and report the results
  list      List the available check types
  examples  Write a suite holding every check example
  validate  Check a suite file for configuration errors

Run 'smoketest <command> -h' for the flags of a command.
`

// app carries what every command needs.
type app struct {
	registry *checks.Registry
	stdout   io.Writer
	stderr   io.Writer
	cfg      *config.Config
}

func main() {
	a := &app{registry: checks.DefaultRegistry, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}

	var cmd func([]string) int
	switch args[0] {
	case "run":
		cmd = a.runCommand
	case "list":
		cmd = a.listCommand
	case "examples":
		cmd = a.examplesCommand
	case "validate":
		cmd = a.validateCommand
	case "-h", "-help", "--help", "help":
		fmt.Fprint(a.stdout, usage)
		return 0
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	return cmd(args[1:])
}

// setup loads the configuration, installs the logger and discovers plugins.
func (a *app) setup(configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if logLevel != "" {
		if err := cfg.SetLogLevel(logLevel); err != nil {
			return fmt.Errorf("-log-level: %w", err)
		}
	}

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	// Discover logs every skipped module itself
	a.registry.Discover(cfg.PluginDirs(config.DefaultPluginDir()))
	return nil
}

func (a *app) environment() *checks.Environment {
	env := checks.NewEnvironment()
	env.HTTPTimeout = a.cfg.HTTPTimeoutDuration()
	env.CertificateRoot = a.cfg.CertificateStoreDir
	return env
}
