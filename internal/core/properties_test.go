package core

import (
	"context"
	"path/filepath"
	"testing"
)

// P7: local-version round trip.
func TestGetLocalVersion_RoundTrip(t *testing.T) {
	tests := []string{"1.0.0", "2.3.4", "0.0.1-alpha"}
	for _, v := range tests {
		want := v + localSuffix
		if got := getLocalVersion(v); got != want {
			t.Errorf("getLocalVersion(%q) = %q, want %q", v, got, want)
		}
		withSuffix := v + "+abc123"
		if got := getLocalVersion(withSuffix); got != want {
			t.Errorf("getLocalVersion(%q) = %q, want %q", withSuffix, got, want)
		}
		if got := getLocalVersion(withSuffix); got != getLocalVersion(v) {
			t.Errorf("getLocalVersion(%q) = %q, getLocalVersion(%q) = %q, want equal", withSuffix, got, v, getLocalVersion(v))
		}
	}
}

// P1: override totality — every version of a registered local package
// carries the +local suffix.
func TestProperty_OverrideTotality(t *testing.T) {
	local := t.TempDir()
	watcher := newFakeDirWatcher()
	watcher.addDir(local, "alpha")
	parser := newFakeParser()
	parser.declare(filepath.Join(local, "alpha"), fakeSource{version: "1.0.0"})
	compiler := &fakeCompiler{parser: parser}

	c := newTestComplete(t, watcher, parser, compiler, nil)
	if err := c.Initialize(context.Background(), []string{local}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for _, id := range c.versionsByPackage["alpha"] {
		v := c.versions[id]
		if !hasSuffix(v.VersionString, localSuffix) {
			t.Errorf("version %q of local package alpha lacks %s suffix", v.VersionString, localSuffix)
		}
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// P2: referential integrity — every Build's VersionID resolves to an
// existing Version, whose PackageName resolves to an existing Package.
func TestProperty_ReferentialIntegrity(t *testing.T) {
	local := t.TempDir()
	watcher := newFakeDirWatcher()
	watcher.addDir(local, "alpha")
	parser := newFakeParser()
	parser.declare(filepath.Join(local, "alpha"), fakeSource{version: "1.0.0"})
	compiler := &fakeCompiler{parser: parser}

	c := newTestComplete(t, watcher, parser, compiler, nil)
	if err := c.Initialize(context.Background(), []string{local}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.build(context.Background(), "alpha", map[string]bool{}); err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, b := range c.builds {
		v, ok := c.getVersionByID(b.VersionID)
		if !ok {
			t.Fatalf("Build references missing Version %q", b.VersionID)
		}
		if _, ok := c.getPackage(v.PackageName); !ok {
			t.Fatalf("Version %q references missing Package %q", v.ID, v.PackageName)
		}
	}
}

// P3: unbuilt is always a subset of effectiveLocalPackages.
func TestProperty_UnbuiltSubsetOfEffective(t *testing.T) {
	local := t.TempDir()
	watcher := newFakeDirWatcher()
	watcher.addDir(local, "alpha", "beta")
	parser := newFakeParser()
	parser.declare(filepath.Join(local, "alpha"), fakeSource{version: "1.0.0"})
	parser.declare(filepath.Join(local, "beta"), fakeSource{version: "1.0.0"})
	compiler := &fakeCompiler{parser: parser}

	c := newTestComplete(t, watcher, parser, compiler, nil)
	if err := c.Initialize(context.Background(), []string{local}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.build(context.Background(), "alpha", map[string]bool{}); err != nil {
		t.Fatalf("build: %v", err)
	}

	for name := range c.unbuilt {
		if c.effectiveLocalPackages[name] == "" {
			t.Errorf("unbuilt contains %q which is not in effectiveLocalPackages", name)
		}
	}
}

// P5: explicit localPackages entries override directory-scan entries
// sharing the same name.
func TestProperty_ExplicitOverridesScan(t *testing.T) {
	scanDir := t.TempDir()
	explicitDir := t.TempDir()

	watcher := newFakeDirWatcher()
	watcher.addDir(scanDir, "alpha")
	watcher.addDir(explicitDir)

	parser := newFakeParser()
	parser.declare(filepath.Join(scanDir, "alpha"), fakeSource{version: "1.0.0"})
	parser.declare(explicitDir, fakeSource{version: "9.0.0"})
	compiler := &fakeCompiler{parser: parser}

	c := newTestComplete(t, watcher, parser, compiler, nil)
	c.localPackages = map[string]string{"alpha": explicitDir}
	if err := c.Initialize(context.Background(), []string{scanDir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if c.effectiveLocalPackages["alpha"] != explicitDir {
		t.Errorf("effectiveLocalPackages[alpha] = %q, want explicit %q", c.effectiveLocalPackages["alpha"], explicitDir)
	}
	if _, ok := c.GetVersion("alpha", "9.0.0+local"); !ok {
		t.Error("expected alpha to be sourced from the explicit directory's declared version")
	}
}

// WatchForChanges wires the watcher's onChange callback to Refresh, so a
// simulated filesystem event picks up a newly declared local package.
func TestWatchForChanges_RefreshesOnChange(t *testing.T) {
	local := t.TempDir()
	watcher := newFakeDirWatcher()
	watcher.addDir(local, "alpha")
	parser := newFakeParser()
	parser.declare(filepath.Join(local, "alpha"), fakeSource{version: "1.0.0"})
	compiler := &fakeCompiler{parser: parser}

	c := newTestComplete(t, watcher, parser, compiler, nil)
	if err := c.Initialize(context.Background(), []string{local}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	stop, err := c.WatchForChanges(context.Background())
	if err != nil {
		t.Fatalf("WatchForChanges: %v", err)
	}
	defer stop()

	watcher.addDir(local, "alpha", "beta")
	parser.declare(filepath.Join(local, "beta"), fakeSource{version: "1.0.0"})
	watcher.triggerChange(local)

	if !c.IsLocalPackage("beta") {
		t.Error("expected beta to appear after a simulated filesystem change triggered a refresh")
	}

	stop()
	if !watcher.stopCalled[local] {
		t.Error("expected stop to tear down the underlying watch")
	}
}

// WatchForChanges is a no-op when no watcher was configured.
func TestWatchForChanges_NoWatcherConfigured(t *testing.T) {
	c := newCompleteCatalog(CompleteCatalogConfig{
		Source:      &fakeSnapshotSource{},
		Parser:      newFakeParser(),
		Compiler:    &fakeCompiler{},
		NewArtifact: func() BuiltArtifact { return &fakeArtifact{} },
	})
	stop, err := c.WatchForChanges(context.Background())
	if err != nil {
		t.Fatalf("WatchForChanges: %v", err)
	}
	stop() // must not panic
}
