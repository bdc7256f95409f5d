package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/git-pkgs/catalog/internal/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCompileAndSaveRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "package.yaml"), "version: 1.0.0\n")
	writeFile(t, filepath.Join(srcDir, "main.go"), "package main\n")

	c := New("amd64")
	src := &core.PackageSource{Name: "widget", SourceRoot: srcDir, VersionString: "1.0.0"}

	artifact, err := c.Compile(context.Background(), src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(artifact.Architectures()) != 1 || artifact.Architectures()[0] != "amd64" {
		t.Errorf("Architectures = %v", artifact.Architectures())
	}

	buildDir := filepath.Join(t.TempDir(), ".build.widget")
	if err := artifact.SaveToPath(context.Background(), buildDir, srcDir); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	loaded := &Artifact{}
	if err := loaded.InitFromPath(context.Background(), "widget", buildDir, srcDir); err != nil {
		t.Fatalf("InitFromPath: %v", err)
	}

	fresh, err := c.CheckUpToDate(context.Background(), src, loaded)
	if err != nil {
		t.Fatalf("CheckUpToDate: %v", err)
	}
	if !fresh {
		t.Error("expected a just-saved build to be up to date")
	}
}

func TestCheckUpToDate_DetectsSourceChange(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "package.yaml"), "version: 1.0.0\n")

	c := New("")
	src := &core.PackageSource{Name: "widget", SourceRoot: srcDir, VersionString: "1.0.0"}

	artifact, err := c.Compile(context.Background(), src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	writeFile(t, filepath.Join(srcDir, "extra.go"), "package main\n")

	fresh, err := c.CheckUpToDate(context.Background(), src, artifact)
	if err != nil {
		t.Fatalf("CheckUpToDate: %v", err)
	}
	if fresh {
		t.Error("expected a modified source tree to be stale")
	}
}

func TestCheckUpToDate_IgnoresBuildCacheDirs(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "package.yaml"), "version: 1.0.0\n")

	c := New("")
	src := &core.PackageSource{Name: "widget", SourceRoot: srcDir, VersionString: "1.0.0"}

	artifact, err := c.Compile(context.Background(), src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	writeFile(t, filepath.Join(srcDir, ".build.widget", "build.tar.gz"), "stale bytes")

	fresh, err := c.CheckUpToDate(context.Background(), src, artifact)
	if err != nil {
		t.Fatalf("CheckUpToDate: %v", err)
	}
	if !fresh {
		t.Error("expected the build cache directory itself to be excluded from the hash")
	}
}

func TestInitFromPath_MissingBuild(t *testing.T) {
	a := &Artifact{}
	err := a.InitFromPath(context.Background(), "widget", filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Error("expected an error for a missing build directory")
	}
}

func TestDefaultArchitecture(t *testing.T) {
	c := New("")
	if c.Architecture != "any" {
		t.Errorf("Architecture = %q, want %q", c.Architecture, "any")
	}
}
