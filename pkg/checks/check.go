// Package checks defines the Check contract, the built-in check variants and
// the registry that discovers them, both at build time and from plugin
// directories. Each variant declares its configuration schema explicitly via
// Fields so that validation and any presentation layer read the same source.
package checks

import (
	"context"
	"reflect"

	"smoketest/pkg/failure"
)

// Check is one independently configurable smoke test.
type Check interface {
	// Type is the variant identity used in persisted suites and the registry.
	Type() string
	// Name is the configured display name; it may be empty.
	Name() string
	SetName(name string)
	// Fields describes the variant's configuration, in presentation order.
	Fields() []Field
	// Run performs the probe and returns a classified error when the observed
	// outcome does not match the configuration.
	Run(ctx context.Context, env *Environment) error
	// Examples returns fully configured instances demonstrating valid usage.
	// It must not probe anything.
	Examples() []Check
}

// Validator is implemented by checks with constraints the field schema cannot
// express (one-of fields, parseable values).
type Validator interface {
	Validate() error
}

// Field is one entry of a check's configuration schema.
type Field struct {
	Name        string
	Description string
	Category    string
	Required    bool
	Value       any
}

// IsSet reports whether the field carries a value. Empty strings and nil
// pointers, slices and maps are unset; other scalars always count as set,
// since a zero exit code or count is a legitimate expectation.
func (f Field) IsSet() bool {
	if f.Value == nil {
		return false
	}
	v := reflect.ValueOf(f.Value)
	switch v.Kind() {
	case reflect.String:
		return v.Len() > 0
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return !v.IsNil()
	default:
		return true
	}
}

// Validate checks every mandatory field of c and then any extra constraints
// the variant declares. All problems are configuration errors.
func Validate(c Check) error {
	if c == nil {
		return failure.Configuration("", "cannot validate nil check")
	}
	for _, f := range c.Fields() {
		if f.Required && !f.IsSet() {
			return failure.Configuration(c.Type(), "mandatory field '%s' is not set", f.Name)
		}
	}
	if v, ok := c.(Validator); ok {
		if err := v.Validate(); err != nil {
			if failure.KindOf(err) == failure.KindUnknown {
				return failure.Wrap(failure.KindConfiguration, c.Type(), err, "invalid configuration")
			}
			return failure.WithOrigin(err, c.Type())
		}
	}
	return nil
}

// DisplayName returns the check's name, or its type when no name is set.
func DisplayName(c Check) string {
	if name := c.Name(); name != "" {
		return name
	}
	return c.Type()
}

// Base carries the display name shared by every variant. Embed it inline.
type Base struct {
	Label string `yaml:"name,omitempty"`
}

func (b *Base) Name() string { return b.Label }

func (b *Base) SetName(name string) { b.Label = name }

func nameField(b *Base) Field {
	return Field{Name: "name", Description: "Display name of the check", Category: "General", Value: b.Label}
}
