// Package executor orchestrates the execution of a suite of checks.
// This file contains the Runner, which executes checks strictly one at a time
// in list order and records a result for every check, whatever happens to the
// others.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smoketest/pkg/checks"
	"smoketest/pkg/failure"
	"smoketest/pkg/suite"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "Pass"
	StatusFail Status = "Fail"
)

// ExecutionResult represents the outcome of executing a suite
type ExecutionResult struct {
	RunID     string         `json:"run_id"`
	Suite     string         `json:"suite"`
	Success   bool           `json:"success"`           // Every check passed
	StartTime time.Time      `json:"start_time"`        // When execution started
	EndTime   time.Time      `json:"end_time"`          // When execution completed
	Duration  float64        `json:"duration_seconds"`  // Total duration in seconds
	Results   []*CheckResult `json:"results"`           // One per executed check, in execution order
	Passed    int            `json:"passed"`
	Failed    int            `json:"failed"`
}

// CheckResult represents the outcome of executing an individual check
type CheckResult struct {
	Index     int          `json:"index"` // Position of the check in its suite
	Name      string       `json:"name"`  // Display name
	Type      string       `json:"type"`
	Status    Status       `json:"status"`
	Message   string       `json:"message,omitempty"` // Empty on pass
	Kind      failure.Kind `json:"kind,omitempty"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Duration  float64      `json:"duration_seconds"`
}

// Passed reports whether the check passed.
func (r *CheckResult) Passed() bool { return r.Status == StatusPass }

// Options provides configuration options for the runner
type Options struct {
	// CheckTimeout bounds every check; zero means unbounded.
	CheckTimeout time.Duration
	// Env is shared by all checks of a run. Nil means defaults.
	Env *checks.Environment
}

// DefaultOptions returns the default runner options
func DefaultOptions() *Options {
	return &Options{Env: checks.NewEnvironment()}
}

// Runner executes checks sequentially.
type Runner struct {
	opts Options
}

// NewRunner creates a runner. A nil opts means DefaultOptions.
func NewRunner(opts *Options) *Runner {
	if opts == nil {
		opts = DefaultOptions()
	}
	r := &Runner{opts: *opts}
	if r.opts.Env == nil {
		r.opts.Env = checks.NewEnvironment()
	}
	return r
}

// Run executes every check of s.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) *ExecutionResult {
	indices := make([]int, len(s.Checks))
	for i := range indices {
		indices[i] = i
	}
	return r.execute(ctx, s.Name, s.Checks, indices)
}

// RunSelected executes the checks of s at the given indices, in the given
// order. An out-of-range index is rejected before anything runs.
func (r *Runner) RunSelected(ctx context.Context, s *suite.Suite, indices []int) (*ExecutionResult, error) {
	selected, err := s.Select(indices)
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %w", err)
	}
	return r.execute(ctx, s.Name, selected, indices), nil
}

// Execute runs an ad-hoc list of checks under the given name.
func (r *Runner) Execute(ctx context.Context, name string, list []checks.Check) *ExecutionResult {
	indices := make([]int, len(list))
	for i := range indices {
		indices[i] = i
	}
	return r.execute(ctx, name, list, indices)
}

func (r *Runner) execute(ctx context.Context, name string, list []checks.Check, indices []int) *ExecutionResult {
	result := &ExecutionResult{
		RunID:     uuid.NewString(),
		Suite:     name,
		StartTime: time.Now(),
		Results:   make([]*CheckResult, 0, len(list)),
	}

	slog.Info("Starting suite execution",
		"run_id", result.RunID,
		"suite", name,
		"checks", len(list))

	for i, c := range list {
		cr := r.runCheck(ctx, indices[i], c)
		result.Results = append(result.Results, cr)
		if cr.Passed() {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	finalizeResult(result)
	result.Success = result.Failed == 0

	if result.Success {
		slog.Info("Suite execution successful",
			"run_id", result.RunID,
			"passed", result.Passed,
			"duration", result.Duration,
			"timestamp", result.EndTime.Format(time.RFC3339))
	} else {
		slog.Warn("Suite execution failed",
			"run_id", result.RunID,
			"passed", result.Passed,
			"failed", result.Failed,
			"duration", result.Duration,
			"timestamp", result.EndTime.Format(time.RFC3339))
	}

	return result
}

// finalizeResult completes the result structure with timing information
func finalizeResult(result *ExecutionResult) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime).Seconds()
}
