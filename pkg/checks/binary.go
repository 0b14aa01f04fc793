package checks

import (
	"context"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
	"smoketest/pkg/peinspect"
)

const TypeBinaryArchitecture = "binary_architecture"

// BinaryArchitecture asserts the CPU architecture a PE image was built for.
type BinaryArchitecture struct {
	Base                 `yaml:",inline"`
	FilePath             string `yaml:"file_path"`
	ExpectedArchitecture string `yaml:"expected_architecture"`
}

func (c *BinaryArchitecture) Type() string { return TypeBinaryArchitecture }

func (c *BinaryArchitecture) Fields() []Field {
	return []Field{
		nameField(&c.Base),
		{Name: "file_path", Description: "Path of the executable or library", Category: "Platform Properties", Required: true, Value: c.FilePath},
		{Name: "expected_architecture", Description: "x86, x64, AnyCpu or Unknown", Category: "Platform Properties", Required: true, Value: c.ExpectedArchitecture},
	}
}

func (c *BinaryArchitecture) Validate() error {
	if _, err := peinspect.ParseArchitecture(c.ExpectedArchitecture); err != nil {
		return failure.Configuration(c.Type(), "%v", err)
	}
	return nil
}

func (c *BinaryArchitecture) Run(ctx context.Context, env *Environment) error {
	expected, err := peinspect.ParseArchitecture(c.ExpectedArchitecture)
	if err != nil {
		return failure.Configuration(c.Type(), "%v", err)
	}

	record, err := peinspect.InspectFile(c.FilePath)
	if err != nil {
		return failure.WithOrigin(err, c.Type())
	}

	return assert.EqualString(expected.String(), record.Architecture.String(), true,
		"%s was expected to be compiled for %s but was actually compiled for %s",
		c.FilePath, expected, record.Architecture)
}

func (c *BinaryArchitecture) Examples() []Check {
	return []Check{
		&BinaryArchitecture{
			Base:                 Base{Label: "Any CPU Platform Check Example"},
			FilePath:             `C:\Assembly\MyExecutable.exe`,
			ExpectedArchitecture: peinspect.AnyCPU.String(),
		},
		&BinaryArchitecture{
			Base:                 Base{Label: "x86 Platform Check Example"},
			FilePath:             `C:\Assembly\MyExecutable.exe`,
			ExpectedArchitecture: peinspect.X86.String(),
		},
		&BinaryArchitecture{
			Base:                 Base{Label: "x64 Platform Check Example"},
			FilePath:             `C:\Assembly\MyExecutable.exe`,
			ExpectedArchitecture: peinspect.X64.String(),
		},
	}
}
