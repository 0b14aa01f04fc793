// Package checks implements check handlers for the smoketest engine.
// This file contains the file system checks.
package checks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"smoketest/pkg/assert"
	"smoketest/pkg/failure"
)

const (
	TypeFileExists   = "file_exists"
	TypeFileContains = "file_contains"
)

// fileTarget is the directory and file name shared by the file checks. An
// empty Path means the current directory.
type fileTarget struct {
	Path     string `yaml:"path,omitempty"`
	Filename string `yaml:"filename"`
}

// FullPath joins Path and Filename.
func (t fileTarget) FullPath() string {
	dir := t.Path
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, t.Filename)
}

func (t *fileTarget) fields() []Field {
	return []Field{
		{Name: "path", Description: "Directory of file (default .)", Category: "File Properties", Value: t.Path},
		{Name: "filename", Description: "Name of file", Category: "File Properties", Required: true, Value: t.Filename},
	}
}

// stat distinguishes a missing file (an assertion) from one that cannot be
// inspected at all.
func (t fileTarget) stat(origin string) (fs.FileInfo, error) {
	info, err := os.Stat(t.FullPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, failure.Assertion(origin, "%s does not exist", t.FullPath())
	case err != nil:
		return nil, failure.Wrap(failure.KindConfiguration, origin, err, "could not inspect %s", t.FullPath())
	case info.IsDir():
		return nil, failure.Assertion(origin, "%s is a directory, not a file", t.FullPath())
	}
	return info, nil
}

// FileExists asserts that a regular file exists.
type FileExists struct {
	Base       `yaml:",inline"`
	fileTarget `yaml:",inline"`
}

func (c *FileExists) Type() string { return TypeFileExists }

func (c *FileExists) Fields() []Field {
	return append([]Field{nameField(&c.Base)}, c.fileTarget.fields()...)
}

func (c *FileExists) Run(ctx context.Context, env *Environment) error {
	_, err := c.stat(c.Type())
	return err
}

func (c *FileExists) Examples() []Check {
	return []Check{
		&FileExists{Base: Base{Label: "Configuration deployed"}, fileTarget: fileTarget{Path: "/etc/myapp", Filename: "app.yaml"}},
		&FileExists{Base: Base{Label: "Licence file present"}, fileTarget: fileTarget{Filename: "LICENSE"}},
	}
}

// FileContains asserts that a file contains a piece of text.
type FileContains struct {
	Base       `yaml:",inline"`
	fileTarget `yaml:",inline"`
	Text       string `yaml:"text"`
}

func (c *FileContains) Type() string { return TypeFileContains }

func (c *FileContains) Fields() []Field {
	fields := append([]Field{nameField(&c.Base)}, c.fileTarget.fields()...)
	return append(fields, Field{
		Name: "text", Description: "Text the file must contain", Category: "File Properties", Required: true, Value: c.Text,
	})
}

func (c *FileContains) Run(ctx context.Context, env *Environment) error {
	if _, err := c.stat(c.Type()); err != nil {
		return err
	}

	data, err := os.ReadFile(c.FullPath())
	if err != nil {
		return failure.Probe(c.Type(), err, "could not read %s", c.FullPath())
	}

	return assert.True(strings.Contains(string(data), c.Text),
		"%s does not contain %q", c.FullPath(), c.Text)
}

func (c *FileContains) Examples() []Check {
	return []Check{
		&FileContains{
			Base:       Base{Label: "Production connection string"},
			fileTarget: fileTarget{Path: "/etc/myapp", Filename: "app.yaml"},
			Text:       "db.prod.internal",
		},
	}
}
