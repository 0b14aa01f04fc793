package executor_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"smoketest/pkg/checks"
	"smoketest/pkg/executor"
	"smoketest/pkg/failure"
	"smoketest/pkg/suite"
)

// stubCheck returns a canned outcome and records the order it ran in.
type stubCheck struct {
	checks.Base
	typ    string
	err    error
	panics bool
	broken bool
	wait   bool
	log    *[]string
}

func (s *stubCheck) Type() string {
	if s.typ == "" {
		return "stub"
	}
	return s.typ
}

func (s *stubCheck) Fields() []checks.Field {
	if s.broken {
		panic("schema exploded")
	}
	return nil
}

func (s *stubCheck) Examples() []checks.Check { return nil }

func (s *stubCheck) Run(ctx context.Context, _ *checks.Environment) error {
	if s.log != nil {
		*s.log = append(*s.log, s.Name())
	}
	if s.panics {
		panic("boom")
	}
	if s.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func stub(name string, err error, log *[]string) *stubCheck {
	s := &stubCheck{err: err, log: log}
	s.SetName(name)
	return s
}

var _ = Describe("Runner", func() {
	var (
		runner *executor.Runner
		order  []string
		ctx    context.Context
	)

	BeforeEach(func() {
		runner = executor.NewRunner(nil)
		order = nil
		ctx = context.Background()
	})

	It("keeps running after a failure and reports every check in order", func() {
		s := suite.New("mixed", "")
		s.Add(
			stub("first", nil, &order),
			stub("second", failure.Assertion("http_reachability", "The HTTP response was 404. The expected response is 200"), &order),
			stub("third", nil, &order),
		)

		result := runner.Run(ctx, s)
		Expect(order).To(Equal([]string{"first", "second", "third"}))
		Expect(result.Results).To(HaveLen(3))
		Expect(result.Success).To(BeFalse())
		Expect(result.Passed).To(Equal(2))
		Expect(result.Failed).To(Equal(1))
		Expect(result.RunID).ToNot(BeEmpty())
		Expect(result.Suite).To(Equal("mixed"))

		Expect(result.Results[0].Status).To(Equal(executor.StatusPass))
		Expect(result.Results[0].Message).To(BeEmpty())

		failed := result.Results[1]
		Expect(failed.Status).To(Equal(executor.StatusFail))
		Expect(failed.Kind).To(Equal(failure.KindAssertion))
		Expect(failed.Message).To(Equal("http_reachability - The HTTP response was 404. The expected response is 200"))
		Expect(failed.Message).To(ContainSubstring("404"))
		Expect(failed.Message).To(ContainSubstring("200"))
	})

	It("uses the check type as origin for unclassified errors", func() {
		s := suite.New("plain", "")
		s.Add(stub("broken", errors.New("disk on fire"), nil))

		res := runner.Run(ctx, s).Results[0]
		Expect(res.Message).To(Equal("stub - disk on fire"))
		Expect(res.Kind).To(Equal(failure.KindUnknown))
	})

	It("isolates panics", func() {
		p := stub("panicky", nil, &order)
		p.panics = true
		s := suite.New("panic", "")
		s.Add(p, stub("after", nil, &order))

		result := runner.Run(ctx, s)
		Expect(order).To(Equal([]string{"panicky", "after"}))
		Expect(result.Results[0].Status).To(Equal(executor.StatusFail))
		Expect(result.Results[0].Message).To(ContainSubstring("boom"))
		Expect(result.Results[1].Status).To(Equal(executor.StatusPass))
	})

	It("isolates panics raised while describing or validating a check", func() {
		b := stub("broken schema", nil, &order)
		b.broken = true
		s := suite.New("schema", "")
		s.Add(b, (*checks.FileExists)(nil), stub("after", nil, &order))

		var result *executor.ExecutionResult
		Expect(func() { result = runner.Run(ctx, s) }).ToNot(Panic())
		Expect(order).To(Equal([]string{"after"}))
		Expect(result.Results).To(HaveLen(3))

		Expect(result.Results[0].Status).To(Equal(executor.StatusFail))
		Expect(result.Results[0].Message).To(Equal("stub - check panicked: schema exploded"))
		Expect(result.Results[1].Status).To(Equal(executor.StatusFail))
		Expect(result.Results[1].Type).To(Equal(checks.TypeFileExists))
		Expect(result.Results[2].Status).To(Equal(executor.StatusPass))
		Expect(result.Failed).To(Equal(2))
	})

	It("fails misconfigured checks without running them", func() {
		s := suite.New("config", "")
		s.Add(&checks.HTTPReachability{ExpectedStatus: "200"}, stub("ok", nil, &order))

		result := runner.Run(ctx, s)
		Expect(result.Results[0].Kind).To(Equal(failure.KindConfiguration))
		Expect(result.Results[0].Name).To(Equal(checks.TypeHTTPReachability))
		Expect(result.Results[0].Message).To(HavePrefix("http_reachability - mandatory field 'url'"))
		Expect(result.Results[1].Passed()).To(BeTrue())
	})

	It("runs a selected subset in the requested order", func() {
		s := suite.New("subset", "")
		s.Add(stub("a", nil, &order), stub("b", nil, &order), stub("c", nil, &order))

		result, err := runner.RunSelected(ctx, s, []int{2, 0})
		Expect(err).ToNot(HaveOccurred())
		Expect(order).To(Equal([]string{"c", "a"}))
		Expect(result.Results).To(HaveLen(2))
		Expect(result.Results[0].Index).To(Equal(2))
		Expect(result.Results[1].Index).To(Equal(0))
	})

	It("rejects an out-of-range selection before running anything", func() {
		s := suite.New("subset", "")
		s.Add(stub("a", nil, &order))

		_, err := runner.RunSelected(ctx, s, []int{0, 3})
		Expect(err).To(HaveOccurred())
		Expect(order).To(BeEmpty())
	})

	It("classifies an expired check timeout", func() {
		runner = executor.NewRunner(&executor.Options{CheckTimeout: 20 * time.Millisecond})
		w := stub("slow", nil, nil)
		w.wait = true

		result := runner.Execute(ctx, "adhoc", []checks.Check{w})
		Expect(result.Results[0].Kind).To(Equal(failure.KindTimeout))
		Expect(result.Results[0].Message).To(HavePrefix("stub - "))
	})

	It("reports success for an empty suite", func() {
		result := runner.Run(ctx, suite.New("empty", ""))
		Expect(result.Success).To(BeTrue())
		Expect(result.Results).To(BeEmpty())
		Expect(result.EndTime).ToNot(BeTemporally("<", result.StartTime))
	})
})
