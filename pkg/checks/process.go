// Package checks implements check handlers for the smoketest engine.
// This file contains the process checks: running an executable and comparing
// its exit code, and asserting that a named process is running.
package checks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
)

const (
	TypeProcessExitCode = "process_exit_code"
	TypeProcessRunning  = "process_running"
)

// ProcessExitCode runs an executable and compares its exit code.
type ProcessExitCode struct {
	Base       `yaml:",inline"`
	Executable string   `yaml:"executable"`
	Arguments  []string `yaml:"arguments,omitempty"`
	ReturnCode int      `yaml:"return_code"`
	// Timeout is a Go duration; empty means wait for as long as it takes.
	Timeout string `yaml:"timeout,omitempty"`
}

func (c *ProcessExitCode) Type() string { return TypeProcessExitCode }

func (c *ProcessExitCode) Fields() []Field {
	return []Field{
		nameField(&c.Base),
		{Name: "executable", Description: "Path of executable or script", Category: "Executable Properties", Required: true, Value: c.Executable},
		{Name: "arguments", Description: "Arguments passed to the executable, one per entry", Category: "Executable Properties", Value: c.Arguments},
		{Name: "return_code", Description: "Expected exit code", Category: "Executable Properties", Required: true, Value: c.ReturnCode},
		{Name: "timeout", Description: "Maximum time to wait for the process (e.g. 30s)", Category: "Executable Properties", Value: c.Timeout},
	}
}

func (c *ProcessExitCode) Validate() error {
	if c.Timeout == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return failure.Configuration(c.Type(), "invalid timeout %q: %v", c.Timeout, err)
	}
	if d <= 0 {
		return failure.Configuration(c.Type(), "timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func (c *ProcessExitCode) Run(ctx context.Context, env *Environment) error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return failure.Configuration(c.Type(), "invalid timeout %q: %v", c.Timeout, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	slog.Info("Executing process", "executable", c.Executable, "args", len(c.Arguments))

	code, err := env.launcher().Launch(ctx, c.Executable, c.Arguments)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failure.Timeout(c.Type(), err, "%s did not exit in time", c.Executable)
		}
		return failure.Probe(c.Type(), err, "process could not execute")
	}

	slog.Debug("Process exited", "executable", c.Executable, "exit_code", code)

	return assert.Equal(c.ReturnCode, code,
		"%s exited with code %d, expected %d", c.Executable, code, c.ReturnCode)
}

func (c *ProcessExitCode) Examples() []Check {
	return []Check{
		&ProcessExitCode{
			Base:       Base{Label: "Batch file returns 1"},
			Executable: `c:\temp\test.bat`,
			Arguments:  []string{"arg1", "arg2"},
			ReturnCode: 1,
		},
		&ProcessExitCode{
			Base:       Base{Label: "Migration status is clean"},
			Executable: "/opt/app/bin/migrate",
			Arguments:  []string{"status", "--exit-code"},
			ReturnCode: 0,
			Timeout:    "2m",
		},
	}
}

// ProcessRunning asserts that at least MinimumCount processes with the given
// name are running.
type ProcessRunning struct {
	Base         `yaml:",inline"`
	ProcessName  string `yaml:"process_name"`
	MinimumCount int    `yaml:"minimum_count,omitempty"`
}

func (c *ProcessRunning) Type() string { return TypeProcessRunning }

func (c *ProcessRunning) Fields() []Field {
	return []Field{
		nameField(&c.Base),
		{Name: "process_name", Description: "Process name, with or without .exe", Category: "Process Properties", Required: true, Value: c.ProcessName},
		{Name: "minimum_count", Description: "Minimum number of instances (default 1)", Category: "Process Properties", Value: c.MinimumCount},
	}
}

func (c *ProcessRunning) Validate() error {
	if c.MinimumCount < 0 {
		return failure.Configuration(c.Type(), "minimum_count must not be negative, got %d", c.MinimumCount)
	}
	return nil
}

func (c *ProcessRunning) Run(ctx context.Context, env *Environment) error {
	names, err := env.lister().ProcessNames(ctx)
	if err != nil {
		return failure.Probe(c.Type(), err, "could not enumerate processes")
	}

	want := normalizeProcessName(c.ProcessName)
	count := 0
	for _, name := range names {
		if normalizeProcessName(name) == want {
			count++
		}
	}

	minimum := c.MinimumCount
	if minimum == 0 {
		minimum = 1
	}
	return assert.True(count >= minimum,
		"%d instance(s) of %s running, expected at least %d", count, c.ProcessName, minimum)
}

func (c *ProcessRunning) Examples() []Check {
	return []Check{
		&ProcessRunning{Base: Base{Label: "Web server is up"}, ProcessName: "nginx"},
		&ProcessRunning{Base: Base{Label: "Worker pool started"}, ProcessName: "worker.exe", MinimumCount: 4},
	}
}

func normalizeProcessName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}
