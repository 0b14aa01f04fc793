package failure_test

import (
	"errors"
	"fmt"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"smoketest/pkg/failure"
)

var _ = Describe("Error kinds", func() {
	It("classifies each constructor", func() {
		Expect(failure.IsConfiguration(failure.Configuration("file_exists", "filename is not set"))).To(BeTrue())
		Expect(failure.IsAssertion(failure.Assertion("", "expected 1 but was 0"))).To(BeTrue())
		Expect(failure.IsFormat(failure.Format("peinspect", io.ErrUnexpectedEOF, "truncated header"))).To(BeTrue())
		Expect(failure.IsProbe(failure.Probe("http_reachability", errors.New("dial tcp: refused"), "no response"))).To(BeTrue())
		Expect(failure.IsTimeout(failure.Timeout("process_exit_code", nil, "gave up after 1s"))).To(BeTrue())
	})

	It("keeps the kind through fmt.Errorf wrapping", func() {
		err := fmt.Errorf("running suite: %w", failure.Assertion("http_reachability", "status mismatch"))
		Expect(failure.KindOf(err)).To(Equal(failure.KindAssertion))
		Expect(failure.OriginOf(err)).To(Equal("http_reachability"))
	})

	It("treats plain and nil errors as unclassified", func() {
		Expect(failure.KindOf(errors.New("boom"))).To(Equal(failure.KindUnknown))
		Expect(failure.IsAssertion(nil)).To(BeFalse())
		Expect(failure.OriginOf(nil)).To(BeEmpty())
	})

	It("renders message and cause", func() {
		err := failure.Format("peinspect", io.ErrUnexpectedEOF, "reading PE signature")
		Expect(err.Error()).To(Equal("reading PE signature: unexpected EOF"))
		Expect(errors.Is(err, io.ErrUnexpectedEOF)).To(BeTrue())
	})

	Context("WithOrigin", func() {
		It("fills a missing origin only", func() {
			err := failure.WithOrigin(failure.Assertion("", "mismatch"), "file_exists")
			Expect(failure.OriginOf(err)).To(Equal("file_exists"))

			err = failure.WithOrigin(failure.Format("peinspect", nil, "bad magic"), "binary_architecture")
			Expect(failure.OriginOf(err)).To(Equal("peinspect"))
		})

		It("wraps plain errors", func() {
			err := failure.WithOrigin(errors.New("boom"), "custom")
			Expect(failure.OriginOf(err)).To(Equal("custom"))
			Expect(failure.KindOf(err)).To(Equal(failure.KindUnknown))
			Expect(err.Error()).To(Equal("boom"))
		})

		It("passes nil through", func() {
			Expect(failure.WithOrigin(nil, "x")).To(BeNil())
		})
	})

	It("names kinds", func() {
		Expect(failure.KindTimeout.String()).To(Equal("timeout"))
		text, err := failure.KindFormat.MarshalText()
		Expect(err).ToNot(HaveOccurred())
		Expect(string(text)).To(Equal("format"))
	})
})
