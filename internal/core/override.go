package core

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
)

// addLocalPackageOverrides implements §4.3: it replaces any server-
// originated versions for locally present packages with synthesised
// local entries, and surfaces each local package's declared test
// package as its own catalog entry. Invariant I3 holds because removal
// (steps 2-4) always precedes insertion (step 5).
func (c *CompleteCatalog) addLocalPackageOverrides(ctx context.Context) error {
	effective, err := c.scanEffectiveLocalPackages()
	if err != nil {
		return err
	}
	c.effectiveLocalPackages = effective

	removed := make(map[string]bool)
	for id, v := range c.versions {
		if effective[v.PackageName] != "" {
			removed[id] = true
		}
	}
	for id := range removed {
		delete(c.versions, id)
	}
	for name := range effective {
		var kept []string
		for _, id := range c.versionsByPackage[name] {
			if !removed[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(c.versionsByPackage, name)
		} else {
			c.versionsByPackage[name] = kept
		}
	}

	var keptBuilds []Build
	for _, b := range c.builds {
		if !removed[b.VersionID] {
			keptBuilds = append(keptBuilds, b)
		}
	}
	c.builds = keptBuilds

	for name := range effective {
		delete(c.packages, name)
	}

	c.packageSources = make(map[string]*PackageSource)
	for name, dir := range effective {
		if err := c.addLocalPackage(ctx, name, dir, false); err != nil {
			return err
		}
	}

	// Test packages synthesised during recursion are local packages too:
	// fold them into effectiveLocalPackages and unbuilt alongside the
	// directory-scanned/explicit entries.
	for name, src := range c.packageSources {
		c.effectiveLocalPackages[name] = src.SourceRoot
	}

	c.unbuilt = make(map[string]bool, len(c.effectiveLocalPackages))
	for name := range c.effectiveLocalPackages {
		c.unbuilt[name] = true
	}

	return nil
}

// scanEffectiveLocalPackages implements step 1: directory scans, each
// dir's first occurrence of a name wins, then explicit localPackages
// overlays the scan (explicit wins).
func (c *CompleteCatalog) scanEffectiveLocalPackages() (map[string]string, error) {
	effective := make(map[string]string)

	for _, dir := range c.localPackageDirs {
		if !c.watcher.IsDir(dir) {
			continue
		}
		entries, err := c.watcher.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			sub := filepath.Join(dir, entry)
			if !c.watcher.IsDir(sub) {
				continue
			}
			if _, ok := effective[entry]; ok {
				continue // first directory in the list wins ties by name
			}
			if _, err := c.parser.Parse(context.Background(), entry, sub); err != nil {
				continue // no package declaration file here
			}
			effective[entry] = sub
		}
	}

	for name, dir := range c.localPackages {
		effective[name] = dir
	}

	return effective, nil
}

// addLocalPackage implements step 5 for a single (name, directory) pair,
// recursing once for a declared test package. asTest marks whether this
// call is itself synthesising a test package (recursion never goes
// deeper than one level).
func (c *CompleteCatalog) addLocalPackage(ctx context.Context, name, dir string, asTest bool) error {
	src, err := c.parser.Parse(ctx, name, dir)
	if err != nil {
		return err
	}
	if asTest {
		src.IsTest = true
	}
	c.packageSources[name] = src

	c.packages[name] = Package{Name: name}

	if hasBuildSuffix(src.VersionString) {
		return &MalformedLocalVersionError{Name: name, Version: src.VersionString}
	}
	localVersion := src.VersionString + localSuffix

	deps, err := c.parser.DependencyMetadata(ctx, src)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	c.versions[id] = Version{
		ID:                        id,
		PackageName:               name,
		VersionString:             localVersion,
		EarliestCompatibleVersion: src.EarliestCompatibleVersion,
		Dependencies:              deps,
		Description:               src.Summary,
		IsTest:                    src.IsTest,
		ContainsPlugins:           src.ContainsPlugins,
		TestName:                  src.TestName,
	}
	c.versionsByPackage[name] = append(c.versionsByPackage[name], id)

	if !src.IsTest && src.TestName != "" {
		if err := c.addLocalPackage(ctx, src.TestName, dir, true); err != nil {
			return err
		}
	}

	return nil
}
