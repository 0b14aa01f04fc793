package assert_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
)

var _ = Describe("Assertion primitives", func() {
	Context("Equal", func() {
		It("passes on equal values", func() {
			Expect(assert.Equal(1, 1)).To(Succeed())
			Expect(assert.Equal("200", "200")).To(Succeed())
		})

		It("raises an assertion failure with a default message", func() {
			err := assert.Equal(1, 0)
			Expect(failure.IsAssertion(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("expected 1 but was 0"))
		})

		It("uses a custom formatted message", func() {
			err := assert.Equal(200, 404, "The Http response was %d. The Expected response is %d", 404, 200)
			Expect(err).To(MatchError("The Http response was 404. The Expected response is 200"))
		})

		It("accepts a message without arguments", func() {
			Expect(assert.Equal(true, false, "flag not set")).To(MatchError("flag not set"))
		})
	})

	It("NotEqual", func() {
		Expect(assert.NotEqual(0, 1)).To(Succeed())
		Expect(failure.IsAssertion(assert.NotEqual(0, 0))).To(BeTrue())
	})

	Context("EqualString", func() {
		It("honours the ignoreCase flag", func() {
			Expect(assert.EqualString("AnyCpu", "anycpu", true)).To(Succeed())
			Expect(assert.EqualString("AnyCpu", "anycpu", false)).ToNot(Succeed())
		})
	})

	It("True and False", func() {
		Expect(assert.True(true)).To(Succeed())
		Expect(assert.True(false)).To(MatchError("condition was false"))
		Expect(assert.False(false)).To(Succeed())
		Expect(assert.False(true, "%d processes", 3)).To(MatchError("3 processes"))
	})

	It("NotEmpty", func() {
		Expect(assert.NotEmpty("x")).To(Succeed())
		Expect(failure.IsAssertion(assert.NotEmpty("  "))).To(BeTrue())
	})

	It("Contains abbreviates long haystacks", func() {
		Expect(assert.Contains("hello world", "world")).To(Succeed())
		err := assert.Contains(strings.Repeat("a", 200), "b")
		Expect(err).To(HaveOccurred())
		Expect(len(err.Error())).To(BeNumerically("<", 120))
	})

	It("Contains abbreviates on character boundaries", func() {
		err := assert.Contains(strings.Repeat("é", 200), "b")
		Expect(utf8.ValidString(err.Error())).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(strings.Repeat("é", 77) + "...\""))
	})
})
