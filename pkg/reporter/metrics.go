package reporter

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smoketest/pkg/executor"
)

const namespace = "smoketest"

// WriteMetrics writes the result in the Prometheus text format to path, for
// collection by node_exporter's textfile collector. The file is replaced
// atomically and holds only this run.
func WriteMetrics(result *executor.ExecutionResult, path string) error {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	checkSuccess := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "check_success",
		Help:      "Whether the check passed (1) or failed (0)",
	}, []string{"suite", "index", "check", "type"})

	checkDuration := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "check_duration_seconds",
		Help:      "Duration of the check in seconds",
	}, []string{"suite", "index", "check", "type"})

	suiteSuccess := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "suite_success",
		Help:      "Whether every check of the suite passed",
	}, []string{"suite"})

	suiteChecks := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "suite_checks",
		Help:      "Number of checks by status",
	}, []string{"suite", "status"})

	lastRun := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the run finished",
	}, []string{"suite"})

	for _, r := range result.Results {
		labels := []string{result.Suite, strconv.Itoa(r.Index), r.Name, r.Type}
		checkSuccess.WithLabelValues(labels...).Set(boolGauge(r.Passed()))
		checkDuration.WithLabelValues(labels...).Set(r.Duration)
	}
	suiteSuccess.WithLabelValues(result.Suite).Set(boolGauge(result.Success))
	suiteChecks.WithLabelValues(result.Suite, string(executor.StatusPass)).Set(float64(result.Passed))
	suiteChecks.WithLabelValues(result.Suite, string(executor.StatusFail)).Set(float64(result.Failed))
	lastRun.WithLabelValues(result.Suite).Set(float64(result.EndTime.Unix()))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics to '%s': %w", path, err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
