// Package sourceparser implements core.PackageSourceParser by reading a
// package.yaml descriptor from a local source directory.
package sourceparser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/git-pkgs/catalog/internal/core"
	"gopkg.in/yaml.v3"
)

// DescriptorFilename is the file Parse looks for in a source directory.
const DescriptorFilename = "package.yaml"

// descriptor mirrors package.yaml's on-disk shape.
type descriptor struct {
	Version               string            `yaml:"version"`
	EarliestCompatible    string            `yaml:"earliestCompatibleVersion"`
	TestName              string            `yaml:"testName"`
	IsTest                bool              `yaml:"isTest"`
	ContainsPlugins       bool              `yaml:"containsPlugins"`
	Summary               string            `yaml:"summary"`
	Dependencies          map[string]string `yaml:"dependencies"`
	BuildDependencies     map[string]string `yaml:"buildDependencies"`
}

// Parser is a core.PackageSourceParser reading package.yaml files.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{}
}

// Parse reads directory/package.yaml and converts it into a
// core.PackageSource. A missing or malformed descriptor is an error,
// meaning "no package declared here" to callers like the directory scan
// in internal/core's LocalOverride.
func (p *Parser) Parse(ctx context.Context, name, directory string) (*core.PackageSource, error) {
	path := filepath.Join(directory, DescriptorFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}
	if d.Version == "" {
		return nil, fmt.Errorf("sourceparser: %s: missing required field %q", path, "version")
	}

	return &core.PackageSource{
		Name:                      name,
		SourceRoot:                directory,
		VersionString:             d.Version,
		EarliestCompatibleVersion: d.EarliestCompatible,
		TestName:                  d.TestName,
		IsTest:                    d.IsTest,
		ContainsPlugins:           d.ContainsPlugins,
		Summary:                   d.Summary,
	}, nil
}

// DependencyMetadata re-reads package.yaml's dependencies map (not its
// buildDependencies, which BuildOrderDependencies reads).
// Kept separate from Parse per the core.PackageSourceParser contract, even
// though this implementation happens to read the same file twice; a
// database-backed parser would not have that luxury.
func (p *Parser) DependencyMetadata(ctx context.Context, src *core.PackageSource) (map[string]string, error) {
	path := filepath.Join(src.SourceRoot, DescriptorFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}
	return d.Dependencies, nil
}

// BuildOrderDependencies extracts the buildDependencies section, for use
// by internal/compiler.Compiler.BuildOrderConstraints.
func BuildOrderDependencies(directory string) ([]core.BuildOrderDependency, error) {
	path := filepath.Join(directory, DescriptorFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("sourceparser: %s: %w", path, err)
	}

	deps := make([]core.BuildOrderDependency, 0, len(d.BuildDependencies))
	for name, version := range d.BuildDependencies {
		deps = append(deps, core.BuildOrderDependency{Name: name, Version: version})
	}
	return deps, nil
}
