// Package reporter provides functions for formatting and outputting execution results.
package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"smoketest/pkg/checks"
	"smoketest/pkg/executor"
)

// PrintResult formats and prints the execution result to the provided writer.
func PrintResult(result *executor.ExecutionResult, w io.Writer) {
	if result == nil {
		fmt.Fprintln(w, "No result available.")
		return
	}

	// Create colored output helpers
	success := color.New(color.FgGreen).SprintFunc()
	failure := color.New(color.FgRed).SprintFunc()
	highlight := color.New(color.FgCyan).SprintFunc()

	// Print header
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "Smoke Test Result: %s\n", highlight(result.Suite))
	fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("-", 80))

	for _, r := range result.Results {
		status := success("✓ PASS")
		if !r.Passed() {
			status = failure("✗ FAIL")
		}

		name := fmt.Sprintf("%d. %s", r.Index+1, r.Name)
		if runes := []rune(name); len(runes) > 60 {
			name = string(runes[:57]) + "..."
		}
		fmt.Fprintf(w, "  %s  %-60s %s\n", status, name, time.Duration(r.Duration*float64(time.Second)).Round(time.Millisecond))

		if r.Message != "" {
			fmt.Fprintf(w, "         %s\n", failure(r.Message))
		}
	}

	// Overall status
	statusStr := success("SUCCESS")
	if !result.Success {
		statusStr = failure("FAILURE")
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 80))
	fmt.Fprintf(w, "Overall Status: %s (%d passed, %d failed)\n", statusStr, result.Passed, result.Failed)
	fmt.Fprintf(w, "Execution Time: %s\n", time.Duration(result.Duration*float64(time.Second)))

	// Print footer
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
}

// PrintVariants lists the registered check types with their configuration
// fields.
func PrintVariants(variants []checks.Variant, w io.Writer) {
	highlight := color.New(color.FgCyan).SprintFunc()
	required := color.New(color.FgYellow).SprintFunc()

	for _, v := range variants {
		fmt.Fprintf(w, "%s  %s\n", highlight(v.Type), v.Description)
		if v.Source != checks.SourceBuiltin {
			fmt.Fprintf(w, "    source: %s\n", v.Source)
		}
		fields, err := v.Fields()
		if err != nil {
			fmt.Fprintf(w, "    %s\n", color.RedString("unavailable: %v", err))
			continue
		}
		for _, f := range fields {
			marker := " "
			if f.Required {
				marker = required("*")
			}
			fmt.Fprintf(w, "    %s %-22s %s\n", marker, f.Name, f.Description)
		}
	}
}
