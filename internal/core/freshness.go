package core

import (
	"context"
	"path/filepath"
)

// buildDirName returns the on-disk build cache directory for a local
// package, "<sourcePath>/.build.<name>".
func buildDirName(sourcePath, name string) string {
	return filepath.Join(sourcePath, ".build."+name)
}

// maybeGetUpToDateBuild implements §4.6: it looks for an existing
// on-disk build of name anchored at sourcePath, and asks the compiler
// whether it is still up to date with the parsed source. It never
// errors on a missing build directory; ok is false whenever no usable
// build was found.
func (c *CompleteCatalog) maybeGetUpToDateBuild(ctx context.Context, name string, src *PackageSource) (artifact BuiltArtifact, ok bool) {
	dir := buildDirName(src.SourceRoot, name)
	if !c.watcher.IsDir(dir) {
		return nil, false
	}

	built := c.newArtifact()
	if err := built.InitFromPath(ctx, name, dir, src.SourceRoot); err != nil {
		return nil, false
	}

	fresh, err := c.compiler.CheckUpToDate(ctx, src, built)
	if err != nil || !fresh {
		return nil, false
	}
	return built, true
}
