// Package executor orchestrates the execution of a suite of checks.
// This file contains the logic for running an individual check: validation,
// the optional timeout, panic recovery and conversion of the outcome into a
// CheckResult.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smoketest/pkg/checks"
	"smoketest/pkg/failure"
)

// runCheck never panics: a panic anywhere in the check, including its name,
// schema or validation, becomes a failed result.
func (r *Runner) runCheck(ctx context.Context, index int, c checks.Check) (result *CheckResult) {
	result = &CheckResult{
		Index:     index,
		StartTime: time.Now(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Check panicked", "index", index, "type", result.Type, "panic", rec)
			result = complete(result, failure.New(failure.KindUnknown, result.Type, "check panicked: %v", rec))
		}
	}()

	if c == nil {
		return complete(result, failure.Configuration("", "check %d is nil", index))
	}
	result.Type = c.Type()
	result.Name = checks.DisplayName(c)

	slog.Info("Executing check",
		"index", index,
		"name", result.Name,
		"type", result.Type)

	if err := checks.Validate(c); err != nil {
		return complete(result, err)
	}

	return complete(result, r.invoke(ctx, c, result.Type))
}

// invoke runs c, converting an expired check timeout into a timeout failure.
func (r *Runner) invoke(ctx context.Context, c checks.Check, checkType string) error {
	if r.opts.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CheckTimeout)
		defer cancel()
	}

	err := c.Run(ctx, r.opts.Env)
	if err != nil && failure.KindOf(err) == failure.KindUnknown && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = failure.Timeout(checkType, err, "check did not finish within %s", r.opts.CheckTimeout)
	}
	return failure.WithOrigin(err, checkType)
}

func complete(result *CheckResult, err error) *CheckResult {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime).Seconds()

	if err == nil {
		result.Status = StatusPass
		slog.Info("Check passed",
			"index", result.Index,
			"name", result.Name,
			"duration", result.Duration)
		return result
	}

	origin := failure.OriginOf(err)
	if origin == "" {
		origin = result.Type
	}
	result.Status = StatusFail
	result.Kind = failure.KindOf(err)
	result.Message = fmt.Sprintf("%s - %s", origin, err.Error())

	slog.Warn("Check failed",
		"index", result.Index,
		"name", result.Name,
		"kind", result.Kind.String(),
		"error", result.Message,
		"duration", result.Duration)
	return result
}
