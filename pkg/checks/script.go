// Package checks implements check handlers for the smoketest engine.
// This file contains script checks: variants described by a check.yaml
// manifest in a plugin directory and executed as external programs.
package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
)

// ManifestFile is the file that marks a plugin subdirectory as a script
// variant.
const ManifestFile = "check.yaml"

var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Manifest describes a script variant.
type Manifest struct {
	Type        string            `yaml:"type"`
	Description string            `yaml:"description"`
	Executable  string            `yaml:"executable"`
	SuccessCode int               `yaml:"success_code"`
	Params      []ManifestParam   `yaml:"params"`
	Examples    []ManifestExample `yaml:"examples"`

	// Dir is the directory the manifest was loaded from.
	Dir string `yaml:"-"`
}

// ManifestParam is one configurable parameter of a script variant.
type ManifestParam struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

// ManifestExample is a ready-made configuration of a script variant.
type ManifestExample struct {
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params"`
}

// LoadManifest reads and validates dir/check.yaml.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	m.Dir = dir

	if m.Type == "" {
		return nil, errors.New("'type' key is missing")
	}
	if !typePattern.MatchString(m.Type) {
		return nil, fmt.Errorf("type %q must be lower snake_case", m.Type)
	}
	if m.Executable == "" {
		return nil, errors.New("'executable' key is missing")
	}
	if !filepath.IsAbs(m.Executable) {
		local := filepath.Join(dir, m.Executable)
		if _, err := os.Stat(local); err != nil {
			return nil, fmt.Errorf("executable %q not found in %s", m.Executable, dir)
		}
	}

	declared := make(map[string]bool, len(m.Params))
	for i, p := range m.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("param #%d is missing 'name' key", i+1)
		}
		if declared[p.Name] {
			return nil, fmt.Errorf("param %q is declared twice", p.Name)
		}
		declared[p.Name] = true
	}
	for i, ex := range m.Examples {
		for name := range ex.Params {
			if !declared[name] {
				return nil, fmt.Errorf("example #%d sets undeclared param %q", i+1, name)
			}
		}
	}

	return &m, nil
}

// ExecutablePath resolves the manifest's executable relative to its directory.
func (m *Manifest) ExecutablePath() string {
	if filepath.IsAbs(m.Executable) {
		return m.Executable
	}
	return filepath.Join(m.Dir, m.Executable)
}

// Variant returns the registry entry for the manifest.
func (m *Manifest) Variant() Variant {
	return Variant{
		Type:        m.Type,
		Description: m.Description,
		Source:      m.Dir,
		New:         func() Check { return NewScript(m) },
	}
}

// Script is a check instance of a manifest-described variant. Parameters are
// passed to the executable as --name=value, sorted by name.
type Script struct {
	Base   `yaml:",inline"`
	Params map[string]string `yaml:"params,omitempty"`

	manifest *Manifest
}

// NewScript returns a script check with the manifest's defaults applied.
func NewScript(m *Manifest) *Script {
	s := &Script{manifest: m, Params: map[string]string{}}
	for _, p := range m.Params {
		if p.Default != "" {
			s.Params[p.Name] = p.Default
		}
	}
	return s
}

// UnmarshalYAML replaces the parameters wholesale, so a default removed
// before saving stays removed after loading.
func (s *Script) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Base   `yaml:",inline"`
		Params map[string]string `yaml:"params"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	s.Base = raw.Base
	s.Params = raw.Params
	if s.Params == nil {
		s.Params = map[string]string{}
	}
	return nil
}

func (s *Script) Type() string { return s.manifest.Type }

func (s *Script) Fields() []Field {
	fields := []Field{nameField(&s.Base)}
	for _, p := range s.manifest.Params {
		fields = append(fields, Field{
			Name:        p.Name,
			Description: p.Description,
			Category:    "Script Parameters",
			Required:    p.Required,
			Value:       s.Params[p.Name],
		})
	}
	return fields
}

func (s *Script) Validate() error {
	for name := range s.Params {
		if !s.declares(name) {
			return failure.Configuration(s.Type(), "unknown parameter %q", name)
		}
	}
	return nil
}

func (s *Script) declares(name string) bool {
	for _, p := range s.manifest.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Args returns the command line passed to the executable.
func (s *Script) Args() []string {
	names := make([]string, 0, len(s.Params))
	for name, value := range s.Params {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	args := make([]string, 0, len(names))
	for _, name := range names {
		args = append(args, fmt.Sprintf("--%s=%s", name, s.Params[name]))
	}
	return args
}

func (s *Script) Run(ctx context.Context, env *Environment) error {
	executable := s.manifest.ExecutablePath()

	slog.Info("Executing script check", "type", s.Type(), "executable", executable)

	code, err := env.launcher().Launch(ctx, executable, s.Args())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return failure.Timeout(s.Type(), err, "%s did not exit in time", executable)
		}
		return failure.Probe(s.Type(), err, "script could not execute")
	}

	return assert.Equal(s.manifest.SuccessCode, code,
		"%s exited with code %d, expected %d", filepath.Base(executable), code, s.manifest.SuccessCode)
}

func (s *Script) Examples() []Check {
	examples := make([]Check, 0, len(s.manifest.Examples))
	for _, ex := range s.manifest.Examples {
		c := NewScript(s.manifest)
		c.SetName(ex.Name)
		for k, v := range ex.Params {
			c.Params[k] = v
		}
		examples = append(examples, c)
	}
	return examples
}
