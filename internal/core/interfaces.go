package core

import "context"

// ServerSnapshotSource loads and refreshes the remote package server's
// state. LoadCached must never fail on a missing or corrupt cache; it
// returns an empty snapshot instead. UpdateFromServer returns ok=false
// (not an error) when the server cannot be reached, so ServerCatalog can
// fall back to the cached snapshot without treating it as fatal.
type ServerSnapshotSource interface {
	LoadCached(ctx context.Context) (Snapshot, error)
	UpdateFromServer(ctx context.Context, prev Snapshot) (snap Snapshot, ok bool, err error)
}

// Snapshot is a point-in-time serialization of the remote package
// server's catalog, opaque beyond the three collections BaseCatalog
// ingests.
type Snapshot struct {
	Packages []Package
	Versions []Version
	Builds   []Build
}

// PackageSource is the parsed declaration of a local source package, as
// produced by the external package-source parser given a directory.
type PackageSource struct {
	Name                      string
	SourceRoot                string
	VersionString             string
	EarliestCompatibleVersion string
	TestName                  string
	IsTest                    bool
	ContainsPlugins           bool
	Summary                   string
}

// PackageSourceParser turns a local source directory into a PackageSource.
type PackageSourceParser interface {
	Parse(ctx context.Context, name, directory string) (*PackageSource, error)
	// DependencyMetadata returns the declared dependencies of a parsed
	// source (they become Version.Dependencies; build-order dependencies
	// come from Compiler.BuildOrderConstraints): name -> constraint string,
	// empty constraint meaning "any version".
	DependencyMetadata(ctx context.Context, src *PackageSource) (map[string]string, error)
}

// BuildOrderDependency is one entry of Compiler.BuildOrderConstraints: a
// package name that must be built before the requesting package, and an
// optional pinned version.
type BuildOrderDependency struct {
	Name    string
	Version string // empty means unpinned
}

// Compiler turns a parsed PackageSource into a BuiltArtifact and answers
// dependency-ordering and freshness questions about it.
type Compiler interface {
	BuildOrderConstraints(ctx context.Context, src *PackageSource) ([]BuildOrderDependency, error)
	Compile(ctx context.Context, src *PackageSource) (BuiltArtifact, error)
	CheckUpToDate(ctx context.Context, src *PackageSource, artifact BuiltArtifact) (bool, error)
}

// BuiltArtifact is the on-disk product of compiling a source tree, for one
// or more architectures.
type BuiltArtifact interface {
	InitFromPath(ctx context.Context, name, dir string, buildOfPath string) error
	SaveToPath(ctx context.Context, dir string, buildOfPath string) error
	Architectures() []string
}

// ConstraintSolver is the external constraint solver. It receives only the
// dependency names, constraint records and options; no catalog is passed
// to Resolve.
type ConstraintSolver interface {
	Resolve(ctx context.Context, deps []string, constraints []ConstraintRecord, opts SolverOptions) (map[string]string, error)
}

// SolverOptions are opaque options forwarded to the solver, augmented by
// the Resolver facade with the project's previous solution when available.
type SolverOptions struct {
	PreviousSolution map[string]string
	Extra            map[string]any
}

// Project exposes the active project's root and its pinned-versions
// manifest.
type Project interface {
	RootDir() string
	GetVersions(ctx context.Context) (map[string]string, error)
}

// Tropohouse locates a downloaded, built package on disk.
type Tropohouse interface {
	PackagePath(ctx context.Context, name, version string) (string, error)
}

// DirWatcher provides directory listing, existence checks, and a watch
// primitive over the local package directories.
type DirWatcher interface {
	IsDir(path string) bool
	ReadDir(path string) ([]string, error)
	Watch(ctx context.Context, path string, onChange func()) (stop func(), err error)
}
