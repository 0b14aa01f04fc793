// Package assert provides the comparison primitives checks use to turn an
// observed value into an assertion failure. Each function returns nil when the
// condition holds and a failure.KindAssertion error otherwise.
//
// The optional msgAndArgs replace the default message: the first element is a
// format string, the rest are its arguments.
package assert

import (
	"fmt"
	"strings"

	"smoketest/pkg/failure"
)

// Equal fails when expected != actual.
func Equal[T comparable](expected, actual T, msgAndArgs ...any) error {
	if expected == actual {
		return nil
	}
	return fail(fmt.Sprintf("expected %v but was %v", expected, actual), msgAndArgs)
}

// NotEqual fails when unexpected == actual.
func NotEqual[T comparable](unexpected, actual T, msgAndArgs ...any) error {
	if unexpected != actual {
		return nil
	}
	return fail(fmt.Sprintf("did not expect %v", actual), msgAndArgs)
}

// EqualString compares two strings, optionally ignoring case.
func EqualString(expected, actual string, ignoreCase bool, msgAndArgs ...any) error {
	if expected == actual || (ignoreCase && strings.EqualFold(expected, actual)) {
		return nil
	}
	return fail(fmt.Sprintf("expected %q but was %q", expected, actual), msgAndArgs)
}

// True fails when condition is false.
func True(condition bool, msgAndArgs ...any) error {
	if condition {
		return nil
	}
	return fail("condition was false", msgAndArgs)
}

// False fails when condition is true.
func False(condition bool, msgAndArgs ...any) error {
	if !condition {
		return nil
	}
	return fail("condition was true", msgAndArgs)
}

// NotEmpty fails when value is empty or only whitespace.
func NotEmpty(value string, msgAndArgs ...any) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	return fail("value was empty", msgAndArgs)
}

// Contains fails when s does not contain substr.
func Contains(s, substr string, msgAndArgs ...any) error {
	if strings.Contains(s, substr) {
		return nil
	}
	return fail(fmt.Sprintf("%q does not contain %q", abbreviate(s, 80), substr), msgAndArgs)
}

func fail(defaultMessage string, msgAndArgs []any) error {
	return failure.New(failure.KindAssertion, "", "%s", message(defaultMessage, msgAndArgs))
}

func message(defaultMessage string, msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return defaultMessage
	}
	format, ok := msgAndArgs[0].(string)
	if !ok {
		return fmt.Sprint(msgAndArgs...)
	}
	if len(msgAndArgs) == 1 {
		return format
	}
	return fmt.Sprintf(format, msgAndArgs[1:]...)
}

// abbreviate shortens s to max runes.
func abbreviate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
