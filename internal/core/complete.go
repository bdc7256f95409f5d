package core

import (
	"context"
	"path/filepath"

	"github.com/git-pkgs/catalog/internal/diagnostics"
)

func absPath(dir string) (string, error) {
	return filepath.Abs(dir)
}

// CompleteCatalog is the server projection merged with local source
// packages, where local entries replace any server entry sharing a
// name. This is the catalog the rest of the tool consumes for
// dependency resolution and build loading.
type CompleteCatalog struct {
	BaseCatalog

	source ServerSnapshotSource
	diag   *diagnostics.Stream

	parser      PackageSourceParser
	compiler    Compiler
	newArtifact func() BuiltArtifact
	tropohouse  Tropohouse
	watcher     DirWatcher
	project     Project
	solver      ConstraintSolver

	resolverState resolverState

	localPackageDirs       []string
	localPackages          map[string]string // explicit name -> dir
	effectiveLocalPackages map[string]string // name -> dir, computed
	packageSources         map[string]*PackageSource
	unbuilt                map[string]bool
}

// CompleteCatalogConfig configures a CompleteCatalog at construction.
type CompleteCatalogConfig struct {
	Source           ServerSnapshotSource
	Diag             *diagnostics.Stream
	Parser           PackageSourceParser
	Compiler         Compiler
	NewArtifact      func() BuiltArtifact
	Tropohouse       Tropohouse
	Watcher          DirWatcher
	Project          Project
	Solver           ConstraintSolver
	LocalPackageDirs []string
}

func newCompleteCatalog(cfg CompleteCatalogConfig) *CompleteCatalog {
	diag := cfg.Diag
	if diag == nil {
		diag = diagnostics.NewStream()
	}
	c := &CompleteCatalog{
		BaseCatalog: newBaseCatalog(),
		source:      cfg.Source,
		diag:        diag,
		parser:      cfg.Parser,
		compiler:    cfg.Compiler,
		newArtifact: cfg.NewArtifact,
		tropohouse:  cfg.Tropohouse,
		watcher:     cfg.Watcher,
		project:     cfg.Project,
		solver:      cfg.Solver,

		localPackages:          make(map[string]string),
		effectiveLocalPackages: make(map[string]string),
		packageSources:         make(map[string]*PackageSource),
		unbuilt:                make(map[string]bool),
	}
	c.setLocalPackageDirs(cfg.LocalPackageDirs)
	c.bootstrapResolver()
	return c
}

// setLocalPackageDirs validates existence at assignment; missing
// entries are silently dropped.
func (c *CompleteCatalog) setLocalPackageDirs(dirs []string) {
	var valid []string
	for _, d := range dirs {
		if c.watcher != nil && c.watcher.IsDir(d) {
			valid = append(valid, d)
		}
	}
	c.localPackageDirs = valid
}

// Initialize configures the local package directories and triggers the
// first refresh.
func (c *CompleteCatalog) Initialize(ctx context.Context, localPackageDirs []string) error {
	c.setLocalPackageDirs(localPackageDirs)
	return c.Refresh(ctx)
}

// Refresh pulls a snapshot from the ServerSnapshot source, clears state,
// ingests server records, then applies local overrides. State is reset
// and rebuilt in full; partial updates are not supported. On a partial
// failure the catalog is left uninitialized.
func (c *CompleteCatalog) Refresh(ctx context.Context) error {
	snap := loadSnapshotWithFallback(ctx, c.source, false, c.diag)

	c.reset()
	c.insertServerPackages(snap)

	if err := c.addLocalPackageOverrides(ctx); err != nil {
		c.initialized = false
		return err
	}

	c.initialized = true
	return nil
}

// GetPackage returns the Package named name.
func (c *CompleteCatalog) GetPackage(name string) (Package, bool) {
	return c.getPackage(name)
}

// GetVersion returns the Version of name at versionString.
func (c *CompleteCatalog) GetVersion(name, versionString string) (Version, bool) {
	return c.getVersion(name, versionString)
}

// GetLatestVersion returns the ID of the latest version of name.
func (c *CompleteCatalog) GetLatestVersion(name string) (string, bool) {
	return c.getLatestVersion(name)
}

// GetAllBuilds returns every Build referencing versionID.
func (c *CompleteCatalog) GetAllBuilds(versionID string) []Build {
	return c.getAllBuilds(versionID)
}

// Unbuilt reports the set of local package names not yet compiled in
// this process's lifetime (P3: always a subset of EffectiveLocalPackages).
func (c *CompleteCatalog) Unbuilt() map[string]bool {
	out := make(map[string]bool, len(c.unbuilt))
	for k := range c.unbuilt {
		out[k] = true
	}
	return out
}

// EffectiveLocalPackages returns the resolved name -> source directory
// mapping in effect after the last refresh.
func (c *CompleteCatalog) EffectiveLocalPackages() map[string]string {
	out := make(map[string]string, len(c.effectiveLocalPackages))
	for k, v := range c.effectiveLocalPackages {
		out[k] = v
	}
	return out
}

// IsLocalPackage reports membership in the effective local package set.
func (c *CompleteCatalog) IsLocalPackage(name string) bool {
	return c.effectiveLocalPackages[name] != ""
}

// AddLocalPackage pins name to an explicit source directory, taking
// precedence over any directory-scan match, and triggers a refresh.
func (c *CompleteCatalog) AddLocalPackage(ctx context.Context, name, dir string) error {
	abs, err := absPath(dir)
	if err != nil {
		return err
	}

	if existing, ok := c.localPackages[name]; ok && existing != abs {
		return &DuplicateLocalPackageError{Name: name, Existing: existing, Requested: abs}
	}

	c.localPackages[name] = abs
	return c.Refresh(ctx)
}

// RemoveLocalPackage drops name's explicit pin and triggers a refresh.
func (c *CompleteCatalog) RemoveLocalPackage(ctx context.Context, name string) error {
	if _, ok := c.localPackages[name]; !ok {
		return &NoSuchLocalPackageError{Name: name}
	}
	delete(c.localPackages, name)
	return c.Refresh(ctx)
}

// WatchForChanges starts a watch on every configured local package
// directory and calls Refresh, logging any error through the diagnostic
// stream, whenever the watcher reports a change. The returned stop
// function tears down every underlying watch; it is safe to call more
// than once. WatchForChanges is a no-op returning a no-op stop function
// when no watcher was configured.
func (c *CompleteCatalog) WatchForChanges(ctx context.Context) (func(), error) {
	if c.watcher == nil {
		return func() {}, nil
	}

	var stops []func()
	onChange := func() {
		job := c.diag.StartJob("refresh on local package change", nil)
		job.Done(c.Refresh(ctx))
	}

	for _, dir := range c.localPackageDirs {
		stop, err := c.watcher.Watch(ctx, dir, onChange)
		if err != nil {
			for _, s := range stops {
				s()
			}
			return nil, err
		}
		stops = append(stops, stop)
	}

	return func() {
		for _, s := range stops {
			s()
		}
	}, nil
}

// GetLoadPathForPackage returns the directory a consumer should load
// name from. For a local package it ensures a build exists (invoking
// the LazyBuilder when needed) and returns the source directory. For a
// non-local package it requires a version and returns the tropohouse
// path if the package has been downloaded there.
func (c *CompleteCatalog) GetLoadPathForPackage(ctx context.Context, name, version string) (string, bool, error) {
	if c.IsLocalPackage(name) {
		if err := c.build(ctx, name, map[string]bool{}); err != nil {
			return "", false, err
		}
		return c.packageSources[name].SourceRoot, true, nil
	}

	if version == "" {
		return "", false, &MissingVersionError{Name: name}
	}

	path, err := c.tropohouse.PackagePath(ctx, name, version)
	if err != nil || path == "" {
		return "", false, nil
	}
	return path, true, nil
}
