// Package failure defines the error kinds a check can raise and the helpers the
// runner uses to tell them apart. Every error that leaves a check is expected to
// be a *Error; anything else is treated as KindUnknown.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a check did not pass.
type Kind int

const (
	// KindUnknown is reported for plain errors and recovered panics.
	KindUnknown Kind = iota
	// KindConfiguration means required input was missing or invalid, detected
	// before any probe was attempted.
	KindConfiguration
	// KindAssertion means the probe ran but observed something other than the
	// configured expectation.
	KindAssertion
	// KindFormat means a binary image is not a recognized executable container.
	KindFormat
	// KindProbe means the probe itself could not observe anything (no HTTP
	// response at all, process could not be spawned).
	KindProbe
	// KindTimeout means a bounded wait expired.
	KindTimeout
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAssertion:
		return "assertion"
	case KindFormat:
		return "format"
	case KindProbe:
		return "probe"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// MarshalText lets reports carry the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a classified check error. Origin names the component that raised it
// (a check type, "peinspect", ...) and is used when composing report messages.
type Error struct {
	Kind    Kind
	Origin  string
	Message string
	Err     error
}

// Error returns the message, followed by the wrapped error when there is one.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, origin, format string, args ...any) error {
	return &Error{Kind: kind, Origin: origin, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err, keeping it reachable through errors.Is / errors.As.
func Wrap(kind Kind, origin string, err error, format string, args ...any) error {
	return &Error{Kind: kind, Origin: origin, Message: fmt.Sprintf(format, args...), Err: err}
}

// Configuration creates a KindConfiguration error.
func Configuration(origin, format string, args ...any) error {
	return New(KindConfiguration, origin, format, args...)
}

// Assertion creates a KindAssertion error.
func Assertion(origin, format string, args ...any) error {
	return New(KindAssertion, origin, format, args...)
}

// Format creates a KindFormat error wrapping the read error, if any.
func Format(origin string, err error, format string, args ...any) error {
	return Wrap(KindFormat, origin, err, format, args...)
}

// Probe creates a KindProbe error wrapping the transport or spawn error.
func Probe(origin string, err error, format string, args ...any) error {
	return Wrap(KindProbe, origin, err, format, args...)
}

// Timeout creates a KindTimeout error.
func Timeout(origin string, err error, format string, args ...any) error {
	return Wrap(KindTimeout, origin, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// OriginOf returns the origin of the first *Error in err's chain, or "".
func OriginOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Origin
	}
	return ""
}

// WithOrigin fills in the origin of a classified error that has none. Plain
// errors are wrapped as KindUnknown so that they carry the origin too.
func WithOrigin(err error, origin string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Origin == "" {
			fe.Origin = origin
		}
		return err
	}
	return &Error{Kind: KindUnknown, Origin: origin, Err: err}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return err != nil && KindOf(err) == KindConfiguration }

// IsAssertion reports whether err is an assertion failure.
func IsAssertion(err error) bool { return err != nil && KindOf(err) == KindAssertion }

// IsFormat reports whether err is a format error.
func IsFormat(err error) bool { return err != nil && KindOf(err) == KindFormat }

// IsProbe reports whether err is a probe error.
func IsProbe(err error) bool { return err != nil && KindOf(err) == KindProbe }

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return err != nil && KindOf(err) == KindTimeout }
