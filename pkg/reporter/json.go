package reporter

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"smoketest/pkg/executor"
)

// WriteJSON writes the execution result as indented JSON.
func WriteJSON(result *executor.ExecutionResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
