package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ExecLauncher runs processes with os/exec. Arguments are passed verbatim, no
// shell is involved, stdin is closed and output is discarded.
type ExecLauncher struct{}

// Launch implements ProcessLauncher.
func (ExecLauncher) Launch(ctx context.Context, executable string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, executable, args...)
	hideWindow(cmd)

	slog.Debug("Launching process", "executable", executable, "args", strings.Join(args, " "))

	err := cmd.Run()
	if err == nil {
		return cmd.ProcessState.ExitCode(), nil
	}

	// A context kill also surfaces as an ExitError; report the context error
	// so the caller can tell a timeout from a genuine exit code.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to start %s: %w", executable, err)
}

// SystemProcessLister enumerates processes through gopsutil.
type SystemProcessLister struct{}

// ProcessNames implements ProcessLister. Processes that exit or deny access
// while being listed are skipped.
func (SystemProcessLister) ProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
