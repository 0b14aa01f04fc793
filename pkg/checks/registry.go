// Package checks provides the registry and implementation of all checks supported by the smoketest engine.
// This file specifically defines the registry system that allows check variants to be registered,
// discovered, and instantiated by type.
package checks

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// SourceBuiltin marks variants compiled into the binary.
const SourceBuiltin = "builtin"

// Variant is a registered check type and its constructor.
type Variant struct {
	Type        string
	Description string
	// Source is SourceBuiltin, a plugin file or a manifest directory.
	Source string
	New    func() Check
}

// Registry manages the registration and lookup of check variants
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]Variant),
	}
}

// NewBuiltinRegistry creates a registry holding every built-in variant
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, v := range builtins() {
		r.MustRegister(v)
	}
	return r
}

// Register adds a new variant to the registry
func (r *Registry) Register(v Variant) error {
	if v.Type == "" {
		return fmt.Errorf("variant is missing a type")
	}
	if v.New == nil {
		return fmt.Errorf("variant '%s' has no constructor", v.Type)
	}
	if v.Source == "" {
		v.Source = SourceBuiltin
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.variants[v.Type]; exists {
		return fmt.Errorf("check type '%s' is already registered by %s", v.Type, existing.Source)
	}

	r.variants[v.Type] = v
	return nil
}

// MustRegister adds a new variant to the registry, panicking if it fails
func (r *Registry) MustRegister(v Variant) {
	if err := r.Register(v); err != nil {
		panic(err)
	}
}

// Get retrieves a variant by type
func (r *Registry) Get(checkType string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.variants[checkType]
	if !exists {
		return Variant{}, fmt.Errorf("no variant registered for check type '%s'", checkType)
	}

	return v, nil
}

// New returns a default-constructed check of the given type
func (r *Registry) New(checkType string) (c Check, err error) {
	v, err := r.Get(checkType)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			c, err = nil, fmt.Errorf("constructor for check type '%s' panicked: %v", checkType, rec)
		}
	}()

	c = v.New()
	if c == nil {
		return nil, fmt.Errorf("constructor for check type '%s' returned nil", checkType)
	}
	return c, nil
}

// Variants returns all registered variants sorted by type
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Variant, 0, len(r.variants))
	for _, v := range r.variants {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Type < list[j].Type })
	return list
}

// Examples collects the examples of every variant, ordered by variant type
// and then by the order each variant declares them. A variant whose
// constructor or examples fail is skipped with a warning.
func (r *Registry) Examples() []Check {
	var examples []Check
	for _, v := range r.Variants() {
		ex, err := v.Examples()
		if err != nil {
			slog.Warn("Skipping examples", "type", v.Type, "source", v.Source, "error", err)
			continue
		}
		examples = append(examples, ex...)
	}
	return examples
}

// Examples returns the variant's examples, converting a panicking plugin
// into an error.
func (v Variant) Examples() (examples []Check, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check type '%s' panicked: %v", v.Type, rec)
		}
	}()

	c := v.New()
	if c == nil {
		return nil, fmt.Errorf("constructor for check type '%s' returned nil", v.Type)
	}
	return c.Examples(), nil
}

// Fields returns the schema of a default-constructed check, converting a
// panicking plugin into an error.
func (v Variant) Fields() (fields []Field, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check type '%s' panicked: %v", v.Type, rec)
		}
	}()

	c := v.New()
	if c == nil {
		return nil, fmt.Errorf("constructor for check type '%s' returned nil", v.Type)
	}
	return c.Fields(), nil
}

// Len reports the number of registered variants
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.variants)
}

// Global instance for convenience
var DefaultRegistry = NewBuiltinRegistry()

func builtins() []Variant {
	return []Variant{
		{
			Type:        TypeHTTPReachability,
			Description: "Requests a URL and compares the HTTP status code",
			New:         func() Check { return &HTTPReachability{} },
		},
		{
			Type:        TypeHTTPContent,
			Description: "Matches a CSS selector or XPath expression against a fetched document",
			New:         func() Check { return &HTTPContent{} },
		},
		{
			Type:        TypeProcessExitCode,
			Description: "Runs an executable and compares its exit code",
			New:         func() Check { return &ProcessExitCode{} },
		},
		{
			Type:        TypeProcessRunning,
			Description: "Asserts that a process is running",
			New:         func() Check { return &ProcessRunning{} },
		},
		{
			Type:        TypeCertificateExists,
			Description: "Looks up a certificate in a certificate store",
			New:         func() Check { return &CertificateExists{} },
		},
		{
			Type:        TypeFileExists,
			Description: "Asserts that a file exists",
			New:         func() Check { return &FileExists{} },
		},
		{
			Type:        TypeFileContains,
			Description: "Asserts that a file contains some text",
			New:         func() Check { return &FileContains{} },
		},
		{
			Type:        TypeBinaryArchitecture,
			Description: "Reads a PE image header and compares its CPU architecture",
			New:         func() Check { return &BinaryArchitecture{} },
		},
	}
}
