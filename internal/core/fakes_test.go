package core

import (
	"context"
	"fmt"
	"path/filepath"
)

// fakeSnapshotSource is a ServerSnapshotSource test double whose
// snapshot and reachability are set directly by the test.
type fakeSnapshotSource struct {
	cached      Snapshot
	fromServer  Snapshot
	unreachable bool
	updateErr   error
}

func (f *fakeSnapshotSource) LoadCached(ctx context.Context) (Snapshot, error) {
	return f.cached, nil
}

func (f *fakeSnapshotSource) UpdateFromServer(ctx context.Context, prev Snapshot) (Snapshot, bool, error) {
	if f.updateErr != nil {
		return Snapshot{}, false, f.updateErr
	}
	if f.unreachable {
		return Snapshot{}, false, nil
	}
	return f.fromServer, true, nil
}

// fakeDirWatcher backs IsDir/ReadDir with an in-memory directory tree
// (dir -> child names), so tests don't touch the real filesystem for
// directory scanning.
type fakeDirWatcher struct {
	dirs       map[string]bool
	children   map[string][]string
	callbacks  map[string]func()
	stopCalled map[string]bool
}

func newFakeDirWatcher() *fakeDirWatcher {
	return &fakeDirWatcher{
		dirs:       map[string]bool{},
		children:   map[string][]string{},
		callbacks:  map[string]func(){},
		stopCalled: map[string]bool{},
	}
}

func (f *fakeDirWatcher) addDir(dir string, children ...string) {
	f.dirs[dir] = true
	for _, c := range children {
		f.dirs[filepath.Join(dir, c)] = true
	}
	f.children[dir] = children
}

func (f *fakeDirWatcher) IsDir(path string) bool { return f.dirs[path] }

func (f *fakeDirWatcher) ReadDir(path string) ([]string, error) {
	return f.children[path], nil
}

// Watch records onChange for path so a test can call triggerChange to
// simulate a filesystem event without touching the real filesystem.
func (f *fakeDirWatcher) Watch(ctx context.Context, path string, onChange func()) (func(), error) {
	f.callbacks[path] = onChange
	return func() { f.stopCalled[path] = true }, nil
}

// triggerChange simulates a filesystem event previously registered via
// Watch, invoking the stored callback for path.
func (f *fakeDirWatcher) triggerChange(path string) {
	if cb := f.callbacks[path]; cb != nil {
		cb()
	}
}

// fakeSource is a package declaration a test wires into fakeParser,
// keyed by the source directory.
type fakeSource struct {
	version         string
	earliestCompat  string
	testName        string
	isTest          bool
	containsPlugins bool
	deps            map[string]string
	buildOrderDeps  []BuildOrderDependency
}

// fakeParser is a PackageSourceParser test double. It "declares a
// package" for every directory registered via declare; any other
// directory fails to parse, modelling "no package declaration file".
type fakeParser struct {
	byDir map[string]fakeSource
}

func newFakeParser() *fakeParser {
	return &fakeParser{byDir: map[string]fakeSource{}}
}

func (p *fakeParser) declare(dir string, src fakeSource) {
	p.byDir[dir] = src
}

func (p *fakeParser) Parse(ctx context.Context, name, directory string) (*PackageSource, error) {
	fs, ok := p.byDir[directory]
	if !ok {
		return nil, fmt.Errorf("no package declaration in %s", directory)
	}
	return &PackageSource{
		Name:                      name,
		SourceRoot:                directory,
		VersionString:             fs.version,
		EarliestCompatibleVersion: fs.earliestCompat,
		TestName:                  fs.testName,
		IsTest:                    fs.isTest,
		ContainsPlugins:           fs.containsPlugins,
		Summary:                   "fake package " + name,
	}, nil
}

func (p *fakeParser) DependencyMetadata(ctx context.Context, src *PackageSource) (map[string]string, error) {
	fs := p.byDir[src.SourceRoot]
	return fs.deps, nil
}

// fakeCompiler is a Compiler test double. BuildOrderConstraints is
// sourced from the fakeParser's declared fakeSource so tests configure
// both in one place.
type fakeCompiler struct {
	parser      *fakeParser
	compileErr  error
	upToDate    map[string]bool // build dir -> fresh
	compileLog  *[]string
}

func (c *fakeCompiler) BuildOrderConstraints(ctx context.Context, src *PackageSource) ([]BuildOrderDependency, error) {
	fs := c.parser.byDir[src.SourceRoot]
	return fs.buildOrderDeps, nil
}

func (c *fakeCompiler) Compile(ctx context.Context, src *PackageSource) (BuiltArtifact, error) {
	if c.compileErr != nil {
		return nil, c.compileErr
	}
	if c.compileLog != nil {
		*c.compileLog = append(*c.compileLog, src.Name)
	}
	return &fakeArtifact{archs: []string{"generic"}}, nil
}

func (c *fakeCompiler) CheckUpToDate(ctx context.Context, src *PackageSource, artifact BuiltArtifact) (bool, error) {
	dir := buildDirName(src.SourceRoot, src.Name)
	return c.upToDate[dir], nil
}

// fakeArtifact is a BuiltArtifact test double; SaveToPath records
// whether it was called (or returns saveErr), and InitFromPath is a
// no-op.
type fakeArtifact struct {
	archs   []string
	saved   bool
	saveErr error
}

func (a *fakeArtifact) InitFromPath(ctx context.Context, name, dir, buildOfPath string) error {
	return nil
}

func (a *fakeArtifact) SaveToPath(ctx context.Context, dir, buildOfPath string) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved = true
	return nil
}

func (a *fakeArtifact) Architectures() []string { return a.archs }

// fakeSolver is a ConstraintSolver test double recording the last call
// it received.
type fakeSolver struct {
	lastDeps        []string
	lastConstraints []ConstraintRecord
	lastOpts        SolverOptions
	result          map[string]string
	err             error
}

func (s *fakeSolver) Resolve(ctx context.Context, deps []string, constraints []ConstraintRecord, opts SolverOptions) (map[string]string, error) {
	s.lastDeps = deps
	s.lastConstraints = constraints
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// fakeProject is a Project test double.
type fakeProject struct {
	root     string
	versions map[string]string
	err      error
}

func (p *fakeProject) RootDir() string { return p.root }

func (p *fakeProject) GetVersions(ctx context.Context) (map[string]string, error) {
	return p.versions, p.err
}

// fakeTropohouse is a Tropohouse test double.
type fakeTropohouse struct {
	paths map[string]string // "name@version" -> path
}

func (t *fakeTropohouse) PackagePath(ctx context.Context, name, version string) (string, error) {
	return t.paths[name+"@"+version], nil
}

// newTestComplete builds a CompleteCatalog wired to fakes, ready for
// Initialize.
func newTestComplete(t interface {
	Helper()
	Fatal(...any)
}, watcher *fakeDirWatcher, parser *fakeParser, compiler *fakeCompiler, source *fakeSnapshotSource) *CompleteCatalog {
	t.Helper()
	if source == nil {
		source = &fakeSnapshotSource{}
	}
	return newCompleteCatalog(CompleteCatalogConfig{
		Source:      source,
		Diag:        nil,
		Parser:      parser,
		Compiler:    compiler,
		NewArtifact: func() BuiltArtifact { return &fakeArtifact{} },
		Tropohouse:  &fakeTropohouse{paths: map[string]string{}},
		Watcher:     watcher,
		Project:     nil,
		Solver:      nil,
	})
}
