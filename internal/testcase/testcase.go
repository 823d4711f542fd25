// Package testcase loads YAML test case files.
package testcase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomatool/tomato-ui/internal/step"
	"gopkg.in/yaml.v3"
)

// ErrTestCase is returned for unreadable or invalid test case files
var ErrTestCase = errors.New("test case error")

// DefaultDir is searched when no paths are given
const DefaultDir = "tests"

// Case is one scenario: a page object and the steps run against it
type Case struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	PageObject  string      `yaml:"page_object"`
	Tags        []string    `yaml:"tags,omitempty"`
	Steps       []step.Step `yaml:"steps"`
}

// File is a test case file
type File struct {
	Path  string `yaml:"-"`
	Name  string `yaml:"name,omitempty"`
	Cases []Case `yaml:"cases"`
}

// Title returns the file's name, or its base name without extension
func (f *File) Title() string {
	if f.Name != "" {
		return f.Name
	}
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and validates one file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrTestCase, path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrTestCase, path, err)
	}
	f.Path = path

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields on every case and step
func (f *File) Validate() error {
	if len(f.Cases) == 0 {
		return fmt.Errorf("%w: %s has no cases", ErrTestCase, f.Path)
	}
	for i, c := range f.Cases {
		where := fmt.Sprintf("%s case %d", f.Path, i+1)
		if c.Name == "" {
			return fmt.Errorf("%w: %s has no name", ErrTestCase, where)
		}
		where = fmt.Sprintf("%s case %q", f.Path, c.Name)
		if c.PageObject == "" {
			return fmt.Errorf("%w: %s has no page_object", ErrTestCase, where)
		}
		if len(c.Steps) == 0 {
			return fmt.Errorf("%w: %s has no steps", ErrTestCase, where)
		}
		for j, s := range c.Steps {
			if s.Action == "" {
				return fmt.Errorf("%w: %s step %d has no action", ErrTestCase, where, j+1)
			}
		}
	}
	return nil
}

// LoadPaths loads every file Discover finds
func LoadPaths(paths []string) ([]*File, error) {
	found, err := Discover(paths)
	if err != nil {
		return nil, err
	}

	out := make([]*File, 0, len(found))
	for _, path := range found {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Discover expands files and directories into test case file paths.
// Directories are walked for .yaml and .yml files. Results are ordered by
// path without duplicates, and finding nothing is an error.
func Discover(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{DefaultDir}
	}

	var files []string
	for _, p := range paths {
		found, err := expand(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	sort.Strings(files)

	out := make([]string, 0, len(files))
	seen := make(map[string]bool)
	for _, path := range files {
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no test case files found in %s", ErrTestCase, strings.Join(paths, ", "))
	}
	return out, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTestCase, err)
	}
	if !info.IsDir() {
		return []string{filepath.Clean(path)}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(p); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Clean(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", ErrTestCase, path, err)
	}
	return files, nil
}
