// Package catalog is the package catalog and build orchestrator: it
// tracks what packages and versions exist on the remote package server,
// layers a developer's local source-tree packages on top of that view,
// resolves dependency constraints, and lazily builds local packages on
// demand.
//
// Two catalogs are exposed side by side:
//
//	catalogs := catalog.NewCatalogs(
//		catalog.WithSnapshotSource(snapshot.New(purls, "")),
//		catalog.WithPackageSourceParser(sourceparser.New()),
//		catalog.WithCompiler(compiler.New("")),
//		catalog.WithArtifactFactory(func() core.BuiltArtifact { return &compiler.Artifact{} }),
//		catalog.WithTropohouse(tropohouse.New(root, fetch.NewResolver(), ecosystemOf)),
//		catalog.WithWatcher(watch.New()),
//		catalog.WithLocalPackageDirs("./packages"),
//	)
//	if err := catalogs.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	pkg, ok := catalogs.Complete.GetPackage("widget")
//
// Official reflects only what the remote server publishes; Complete
// merges that view with local overrides and is what the rest of a
// consuming tool should query for day-to-day package resolution and
// loading.
package catalog

import (
	"github.com/git-pkgs/catalog/internal/core"
)

// Re-export the catalog's data model and errors so importers never need
// to reach into internal/core directly.
type (
	Package    = core.Package
	Version    = core.Version
	Build      = core.Build
	Maintainer = core.Maintainer

	Snapshot             = core.Snapshot
	PackageSource        = core.PackageSource
	BuildOrderDependency = core.BuildOrderDependency
	SolverOptions        = core.SolverOptions
	ConstraintRecord     = core.ConstraintRecord
	ConstraintEntry      = core.ConstraintEntry
	ConstraintList       = core.ConstraintList
	ConstraintMap        = core.ConstraintMap
	ConstraintSource     = core.ConstraintSource
	ResolveOptions       = core.ResolveOptions

	ServerSnapshotSource = core.ServerSnapshotSource
	PackageSourceParser  = core.PackageSourceParser
	Compiler             = core.Compiler
	BuiltArtifact        = core.BuiltArtifact
	ConstraintSolver     = core.ConstraintSolver
	Project              = core.Project
	Tropohouse           = core.Tropohouse
	DirWatcher           = core.DirWatcher

	Catalogs        = core.Catalogs
	ServerCatalog   = core.ServerCatalog
	CompleteCatalog = core.CompleteCatalog
	Option          = core.Option

	DuplicateLocalPackageError = core.DuplicateLocalPackageError
	NoSuchLocalPackageError    = core.NoSuchLocalPackageError
	MissingVersionError        = core.MissingVersionError
	MalformedLocalVersionError = core.MalformedLocalVersionError
	InternalInconsistencyError = core.InternalInconsistencyError
)

var (
	ErrNotInitialized    = core.ErrNotInitialized
	ErrSolverUnavailable = core.ErrSolverUnavailable
)

// NewCatalogs builds the Official/Complete catalog pair. The result is
// uninitialized; call Initialize before querying it.
func NewCatalogs(opts ...Option) *Catalogs {
	return core.NewCatalogs(opts...)
}

var (
	WithOffline             = core.WithOffline
	WithLocalPackageDirs    = core.WithLocalPackageDirs
	WithDiagnostics         = core.WithDiagnostics
	WithSnapshotSource      = core.WithSnapshotSource
	WithPackageSourceParser = core.WithPackageSourceParser
	WithCompiler            = core.WithCompiler
	WithArtifactFactory     = core.WithArtifactFactory
	WithTropohouse          = core.WithTropohouse
	WithWatcher             = core.WithWatcher
	WithProject             = core.WithProject
	WithSolver              = core.WithSolver
)
