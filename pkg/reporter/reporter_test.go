package reporter_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"smoketest/pkg/checks"
	"smoketest/pkg/executor"
	"smoketest/pkg/failure"
	"smoketest/pkg/reporter"
)

func sampleResult() *executor.ExecutionResult {
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return &executor.ExecutionResult{
		RunID:     "6f1c2a9e-0000-4000-8000-000000000001",
		Suite:     "release",
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Duration:  2,
		Passed:    1,
		Failed:    1,
		Results: []*executor.CheckResult{
			{Index: 0, Name: "API health", Type: checks.TypeHTTPReachability, Status: executor.StatusPass, Duration: 0.25},
			{
				Index:    1,
				Name:     "Admin hidden",
				Type:     checks.TypeHTTPReachability,
				Status:   executor.StatusFail,
				Kind:     failure.KindAssertion,
				Message:  "http_reachability - The HTTP response was 200. The expected response is 404",
				Duration: 0.5,
			},
		},
	}
}

var _ = Describe("PrintResult", func() {
	It("lists every check with its outcome and message", func() {
		var buf bytes.Buffer
		reporter.PrintResult(sampleResult(), &buf)

		out := buf.String()
		Expect(out).To(ContainSubstring("Smoke Test Result: release"))
		Expect(out).To(ContainSubstring("✓ PASS  1. API health"))
		Expect(out).To(ContainSubstring("✗ FAIL  2. Admin hidden"))
		Expect(out).To(ContainSubstring("The HTTP response was 200. The expected response is 404"))
		Expect(out).To(ContainSubstring("Overall Status: FAILURE (1 passed, 1 failed)"))
	})

	It("shortens long names on character boundaries", func() {
		result := sampleResult()
		result.Results[0].Name = strings.Repeat("ü", 70)

		var buf bytes.Buffer
		reporter.PrintResult(result, &buf)
		Expect(utf8.ValidString(buf.String())).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring("1. " + strings.Repeat("ü", 54) + "..."))
	})

	It("handles a missing result", func() {
		var buf bytes.Buffer
		reporter.PrintResult(nil, &buf)
		Expect(buf.String()).To(ContainSubstring("No result available."))
	})
})

var _ = Describe("PrintVariants", func() {
	It("marks required fields", func() {
		var buf bytes.Buffer
		reporter.PrintVariants(checks.NewBuiltinRegistry().Variants(), &buf)
		Expect(buf.String()).To(ContainSubstring(checks.TypeBinaryArchitecture))
		Expect(buf.String()).To(MatchRegexp(`\* expected_architecture`))
	})

	It("keeps listing past a variant that cannot be constructed", func() {
		variants := []checks.Variant{
			{Type: "exploding", Source: "/opt/plugins/bad.so", New: func() checks.Check { panic("constructor exploded") }},
			{Type: checks.TypeFileExists, Source: checks.SourceBuiltin, New: func() checks.Check { return &checks.FileExists{} }},
		}

		var buf bytes.Buffer
		Expect(func() { reporter.PrintVariants(variants, &buf) }).ToNot(Panic())
		Expect(buf.String()).To(ContainSubstring("unavailable: check type 'exploding' panicked: constructor exploded"))
		Expect(buf.String()).To(MatchRegexp(`\* filename`))
	})
})

var _ = Describe("WriteJSON", func() {
	It("encodes results with kinds by name", func() {
		var buf bytes.Buffer
		Expect(reporter.WriteJSON(sampleResult(), &buf)).To(Succeed())

		var decoded map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["suite"]).To(Equal("release"))
		Expect(decoded["success"]).To(BeFalse())

		results := decoded["results"].([]any)
		Expect(results).To(HaveLen(2))
		Expect(results[0].(map[string]any)).ToNot(HaveKey("kind"))
		Expect(results[1].(map[string]any)["kind"]).To(Equal("assertion"))
		Expect(results[1].(map[string]any)["status"]).To(Equal("Fail"))
	})
})

var _ = Describe("WriteMetrics", func() {
	It("writes a textfile for node_exporter", func() {
		path := filepath.Join(GinkgoT().TempDir(), "smoketest.prom")
		Expect(reporter.WriteMetrics(sampleResult(), path)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		out := string(data)
		Expect(out).To(ContainSubstring(`smoketest_check_success{check="API health",index="0",suite="release",type="http_reachability"} 1`))
		Expect(out).To(ContainSubstring(`smoketest_check_success{check="Admin hidden",index="1",suite="release",type="http_reachability"} 0`))
		Expect(out).To(ContainSubstring(`smoketest_suite_success{suite="release"} 0`))
		Expect(out).To(ContainSubstring(`smoketest_suite_checks{status="Fail",suite="release"} 1`))
	})
})
