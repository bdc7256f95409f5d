package sourceparser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeDescriptor(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, DescriptorFilename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParse_Basic(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, `
version: 1.2.3
summary: a fine package
dependencies:
  other: ">=1.0.0"
`)

	src, err := New().Parse(context.Background(), "widget", dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if src.VersionString != "1.2.3" || src.Summary != "a fine package" || src.Name != "widget" {
		t.Errorf("Parse = %+v", src)
	}
}

func TestParse_MissingDescriptor(t *testing.T) {
	dir := t.TempDir()
	if _, err := New().Parse(context.Background(), "widget", dir); err == nil {
		t.Error("expected an error for a directory with no package.yaml")
	}
}

func TestParse_MissingVersion(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "summary: no version here\n")
	if _, err := New().Parse(context.Background(), "widget", dir); err == nil {
		t.Error("expected an error for a descriptor missing version")
	}
}

func TestDependencyMetadata(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, `
version: 1.0.0
dependencies:
  left-pad: "^1.0"
  right-pad: "^2.0"
`)

	p := New()
	src, err := p.Parse(context.Background(), "widget", dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	deps, err := p.DependencyMetadata(context.Background(), src)
	if err != nil {
		t.Fatalf("DependencyMetadata: %v", err)
	}
	if deps["left-pad"] != "^1.0" || deps["right-pad"] != "^2.0" {
		t.Errorf("DependencyMetadata = %v", deps)
	}
}

func TestBuildOrderDependencies(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, `
version: 1.0.0
buildDependencies:
  toolchain: "1.5.0"
`)

	deps, err := BuildOrderDependencies(dir)
	if err != nil {
		t.Fatalf("BuildOrderDependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "toolchain" || deps[0].Version != "1.5.0" {
		t.Errorf("BuildOrderDependencies = %+v", deps)
	}
}

func TestParse_TestPackageSynthesis(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, `
version: 1.0.0
testName: widget-test
`)

	src, err := New().Parse(context.Background(), "widget", dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if src.TestName != "widget-test" || src.IsTest {
		t.Errorf("Parse = %+v", src)
	}
}
