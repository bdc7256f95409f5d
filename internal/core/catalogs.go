package core

import (
	"context"

	"github.com/git-pkgs/catalog/internal/diagnostics"
)

// Catalogs holds the two catalog instances the rest of the tool
// consumes. Constructed once at process start and passed by reference,
// it replaces the "official"/"complete" globals a naive port would
// reach for (REDESIGN FLAGS).
type Catalogs struct {
	Official *ServerCatalog
	Complete *CompleteCatalog

	offline          bool
	localPackageDirs []string
}

type catalogsConfig struct {
	offline          bool
	localPackageDirs []string
	diag             *diagnostics.Stream
	source           ServerSnapshotSource
	parser           PackageSourceParser
	compiler         Compiler
	newArtifact      func() BuiltArtifact
	tropohouse       Tropohouse
	watcher          DirWatcher
	project          Project
	solver           ConstraintSolver
}

// Option configures Catalogs at construction.
type Option func(*catalogsConfig)

// WithOffline makes Official refresh only from the on-disk cache.
func WithOffline(offline bool) Option {
	return func(c *catalogsConfig) { c.offline = offline }
}

// WithLocalPackageDirs sets the directories CompleteCatalog scans for
// local source packages.
func WithLocalPackageDirs(dirs ...string) Option {
	return func(c *catalogsConfig) { c.localPackageDirs = dirs }
}

// WithDiagnostics overrides the default diagnostic stream.
func WithDiagnostics(d *diagnostics.Stream) Option {
	return func(c *catalogsConfig) { c.diag = d }
}

// WithSnapshotSource sets the remote-server snapshot source both
// catalogs refresh from.
func WithSnapshotSource(s ServerSnapshotSource) Option {
	return func(c *catalogsConfig) { c.source = s }
}

// WithPackageSourceParser sets the local package declaration parser.
func WithPackageSourceParser(p PackageSourceParser) Option {
	return func(c *catalogsConfig) { c.parser = p }
}

// WithCompiler sets the compiler LazyBuilder invokes.
func WithCompiler(comp Compiler) Option {
	return func(c *catalogsConfig) { c.compiler = comp }
}

// WithArtifactFactory sets the constructor for a fresh BuiltArtifact
// value, used when loading a cached build from disk.
func WithArtifactFactory(f func() BuiltArtifact) Option {
	return func(c *catalogsConfig) { c.newArtifact = f }
}

// WithTropohouse sets the downloaded-package store consulted for
// non-local packages.
func WithTropohouse(t Tropohouse) Option {
	return func(c *catalogsConfig) { c.tropohouse = t }
}

// WithWatcher sets the filesystem primitives used for directory
// scanning and, if wired further up, live refresh on change.
func WithWatcher(w DirWatcher) Option {
	return func(c *catalogsConfig) { c.watcher = w }
}

// WithProject sets the active project consulted for pinned-version
// reconciliation during constraint resolution.
func WithProject(p Project) Option {
	return func(c *catalogsConfig) { c.project = p }
}

// WithSolver sets the constraint solver. Until set, ResolveConstraints
// returns ErrSolverUnavailable.
func WithSolver(s ConstraintSolver) Option {
	return func(c *catalogsConfig) { c.solver = s }
}

// NewCatalogs builds the two catalog instances sharing the collaborators
// configured through opts. The result is uninitialised; call Initialize
// (or Official.Initialize/Complete.Initialize individually) before use.
func NewCatalogs(opts ...Option) *Catalogs {
	cfg := &catalogsConfig{diag: diagnostics.NewStream()}
	for _, opt := range opts {
		opt(cfg)
	}

	official := newServerCatalog(ServerCatalogConfig{
		Source:  cfg.source,
		Diag:    cfg.diag,
		Offline: cfg.offline,
	})

	complete := newCompleteCatalog(CompleteCatalogConfig{
		Source:           cfg.source,
		Diag:             cfg.diag,
		Parser:           cfg.parser,
		Compiler:         cfg.compiler,
		NewArtifact:      cfg.newArtifact,
		Tropohouse:       cfg.tropohouse,
		Watcher:          cfg.watcher,
		Project:          cfg.project,
		Solver:           cfg.solver,
		LocalPackageDirs: cfg.localPackageDirs,
	})

	return &Catalogs{
		Official:         official,
		Complete:         complete,
		offline:          cfg.offline,
		localPackageDirs: cfg.localPackageDirs,
	}
}

// Initialize configures and performs the first refresh of both
// catalogs, Official before Complete since Complete's refresh also
// pulls a server snapshot and layers local overrides on top.
func (c *Catalogs) Initialize(ctx context.Context) error {
	c.Official.Initialize(c.offline)
	if err := c.Official.Refresh(ctx); err != nil {
		return err
	}
	return c.Complete.Initialize(ctx, c.localPackageDirs)
}

// WatchForChanges starts watching every configured local package
// directory and refreshes Complete whenever one changes, for a
// long-running process that wants to pick up edited package
// declarations without polling. Call after Initialize. The returned
// stop function tears the watches down.
func (c *Catalogs) WatchForChanges(ctx context.Context) (func(), error) {
	return c.Complete.WatchForChanges(ctx)
}
