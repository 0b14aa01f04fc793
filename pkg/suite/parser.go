// Package suite defines the ordered, named collection of checks.
// This file specifically handles loading suites from YAML files and saving
// them back, resolving each entry's type through a check registry.
package suite

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"smoketest/pkg/checks"
)

// typeKey is the entry key holding a check's variant identity.
const typeKey = "type"

type document struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Checks      []yaml.Node `yaml:"checks"`
}

// Marshal encodes s as YAML. Each check entry is the check's own fields
// preceded by its type.
func Marshal(s *Suite) ([]byte, error) {
	doc := document{
		Name:        s.Name,
		Description: s.Description,
		Checks:      make([]yaml.Node, 0, len(s.Checks)),
	}

	for i, c := range s.Checks {
		if c == nil {
			return nil, fmt.Errorf("checks[%d] is nil", i)
		}
		var node yaml.Node
		if err := node.Encode(c); err != nil {
			return nil, fmt.Errorf("failed to encode checks[%d] (%s): %w", i, c.Type(), err)
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("checks[%d] (%s) does not encode to a mapping", i, c.Type())
		}
		node.Content = append([]*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: typeKey},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Type()},
		}, node.Content...)
		doc.Checks = append(doc.Checks, node)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal suite to YAML: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a suite, instantiating every entry through reg. An entry
// with a missing or unknown type fails the whole load.
func Unmarshal(data []byte, reg *checks.Registry) (*Suite, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suite YAML: %w", err)
	}

	s := &Suite{Name: doc.Name, Description: doc.Description}
	for i := range doc.Checks {
		c, err := decodeCheck(&doc.Checks[i], reg)
		if err != nil {
			return nil, fmt.Errorf("checks[%d]: %w", i, err)
		}
		s.Checks = append(s.Checks, c)
	}
	return s, nil
}

func decodeCheck(node *yaml.Node, reg *checks.Registry) (checks.Check, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}

	var checkType string
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == typeKey {
			checkType = node.Content[i+1].Value
			break
		}
	}
	if checkType == "" {
		return nil, fmt.Errorf("line %d: '%s' key is missing", node.Line, typeKey)
	}

	c, err := reg.New(checkType)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	if err := node.Decode(c); err != nil {
		return nil, fmt.Errorf("line %d: invalid %s configuration: %w", node.Line, checkType, err)
	}
	return c, nil
}

// Load reads a suite from a YAML file.
func Load(filePath string, reg *checks.Registry) (*Suite, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file '%s': %w", filePath, err)
	}

	s, err := Unmarshal(data, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to load '%s': %w", filepath.Base(filePath), err)
	}
	return s, nil
}

// Save writes s to a YAML file.
func Save(s *Suite, filePath string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write to file '%s': %w", filePath, err)
	}
	return nil
}
