// Package suite defines the ordered, named collection of checks that is
// edited, persisted and handed to the executor.
package suite

import (
	"errors"
	"fmt"
	"sort"

	"smoketest/pkg/checks"
)

// Direction selects which way Move shifts checks.
type Direction int

const (
	Up Direction = iota
	Down
)

// Suite is an ordered list of checks. Execution order is list order.
type Suite struct {
	Name        string
	Description string
	Checks      []checks.Check
}

// New creates an empty suite.
func New(name, description string) *Suite {
	return &Suite{Name: name, Description: description}
}

// FromExamples builds a suite holding every example the registry offers.
func FromExamples(reg *checks.Registry) *Suite {
	return &Suite{
		Name:        "Examples",
		Description: "One instance of every example provided by the registered check types",
		Checks:      reg.Examples(),
	}
}

// Len returns the number of checks.
func (s *Suite) Len() int { return len(s.Checks) }

// Add appends checks to the end of the suite.
func (s *Suite) Add(c ...checks.Check) {
	s.Checks = append(s.Checks, c...)
}

// Insert places c at index, shifting later checks down. index may equal Len.
func (s *Suite) Insert(index int, c checks.Check) error {
	if index < 0 || index > len(s.Checks) {
		return fmt.Errorf("insert index %d out of range [0,%d]", index, len(s.Checks))
	}
	s.Checks = append(s.Checks, nil)
	copy(s.Checks[index+1:], s.Checks[index:])
	s.Checks[index] = c
	return nil
}

// Remove deletes the checks at the given indices. Nothing is removed when any
// index is out of range.
func (s *Suite) Remove(indices ...int) error {
	set, err := s.indexSet(indices)
	if err != nil {
		return err
	}
	kept := s.Checks[:0]
	for i, c := range s.Checks {
		if !set[i] {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(s.Checks); i++ {
		s.Checks[i] = nil
	}
	s.Checks = kept
	return nil
}

// Clear removes every check.
func (s *Suite) Clear() {
	s.Checks = nil
}

// Move shifts the selected checks one position in the given direction,
// keeping their relative order, and returns their new indices. A selection
// already touching the edge it moves towards stays where it is.
func (s *Suite) Move(indices []int, dir Direction) ([]int, error) {
	set, err := s.indexSet(indices)
	if err != nil {
		return nil, err
	}
	sorted := make([]int, 0, len(set))
	for i := range set {
		sorted = append(sorted, i)
	}
	sort.Ints(sorted)
	if len(sorted) == 0 {
		return sorted, nil
	}

	switch dir {
	case Up:
		if sorted[0] == 0 {
			return sorted, nil
		}
		for k, i := range sorted {
			s.Checks[i-1], s.Checks[i] = s.Checks[i], s.Checks[i-1]
			sorted[k] = i - 1
		}
	case Down:
		if sorted[len(sorted)-1] == len(s.Checks)-1 {
			return sorted, nil
		}
		for k := len(sorted) - 1; k >= 0; k-- {
			i := sorted[k]
			s.Checks[i+1], s.Checks[i] = s.Checks[i], s.Checks[i+1]
			sorted[k] = i + 1
		}
	default:
		return nil, fmt.Errorf("unknown direction %d", dir)
	}
	return sorted, nil
}

// Select returns the checks at the given indices, in the given order.
func (s *Suite) Select(indices []int) ([]checks.Check, error) {
	selected := make([]checks.Check, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.Checks) {
			return nil, fmt.Errorf("check index %d out of range [0,%d)", i, len(s.Checks))
		}
		selected = append(selected, s.Checks[i])
	}
	return selected, nil
}

// Validate validates every check and reports all problems together.
func (s *Suite) Validate() error {
	var errs []error
	for i, c := range s.Checks {
		if err := checks.Validate(c); err != nil {
			errs = append(errs, fmt.Errorf("checks[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Suite) indexSet(indices []int) (map[int]bool, error) {
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.Checks) {
			return nil, fmt.Errorf("check index %d out of range [0,%d)", i, len(s.Checks))
		}
		set[i] = true
	}
	return set, nil
}
