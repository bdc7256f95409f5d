package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ignoreEntry is appended to a local package's version-control ignore
// file so its build cache directories are never committed.
const ignoreEntry = ".build*"

// build implements §4.5's `_build(name, onStack)`. onStack is the
// explicit set of names currently being built along this recursion
// path (REDESIGN FLAGS: no thread-local state).
func (c *CompleteCatalog) build(ctx context.Context, name string, onStack map[string]bool) error {
	if !c.unbuilt[name] {
		return nil // already built, or never was local
	}
	delete(c.unbuilt, name) // remove before recursing so re-entry short-circuits

	onStack[name] = true
	defer delete(onStack, name)

	src, ok := c.packageSources[name]
	if !ok {
		return &InternalInconsistencyError{Detail: fmt.Sprintf("no parsed source for local package %q", name)}
	}

	deps, err := c.compiler.BuildOrderConstraints(ctx, src)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if !c.IsLocalPackage(dep.Name) {
			// External packages come from the tropohouse; assume built.
			continue
		}

		if dep.Version != "" {
			depSrc := c.packageSources[dep.Name]
			if depSrc == nil || getLocalVersion(depSrc.VersionString) != getLocalVersion(dep.Version) {
				return &InternalInconsistencyError{
					Detail: fmt.Sprintf("build-order dependency %q of %q pins version %q, local source declares a different version", dep.Name, name, dep.Version),
				}
			}
		}

		if onStack[dep.Name] {
			// Cycle detected (P6: never recurse through a name already on
			// the stack). A fresh cached build of dep satisfies the edge
			// silently; otherwise a warning is logged and the edge is
			// skipped.
			depSrc := c.packageSources[dep.Name]
			if depSrc == nil {
				return &InternalInconsistencyError{Detail: fmt.Sprintf("cyclic dependency on unknown local package %q", dep.Name)}
			}
			if _, fresh := c.maybeGetUpToDateBuild(ctx, dep.Name, depSrc); fresh {
				continue
			}
			if c.diag != nil {
				c.diag.Warnf("circular dependency between %s and %s", name, dep.Name)
			}
			continue
		}

		onStack[dep.Name] = true
		err := c.build(ctx, dep.Name, onStack)
		delete(onStack, dep.Name)
		if err != nil {
			return err
		}
	}

	artifact, err := c.compileOrReuse(ctx, name, src)
	if err != nil {
		return err
	}

	versionID, ok := c.getLatestVersion(name)
	if !ok {
		return &InternalInconsistencyError{Detail: fmt.Sprintf("no version recorded for local package %q after build", name)}
	}

	archs := artifact.Architectures()
	arch := ""
	if len(archs) > 0 {
		arch = archs[0]
	}
	c.builds = append(c.builds, Build{
		PackageName:  name,
		VersionID:    versionID,
		Architecture: arch,
	})

	return nil
}

// compileOrReuse implements steps 3-4: reuse a fresh on-disk build if one
// exists, otherwise compile and attempt to persist the result.
func (c *CompleteCatalog) compileOrReuse(ctx context.Context, name string, src *PackageSource) (BuiltArtifact, error) {
	if artifact, ok := c.maybeGetUpToDateBuild(ctx, name, src); ok {
		return artifact, nil
	}

	job := c.diag.StartJob(fmt.Sprintf("building package %s", name), map[string]any{"path": src.SourceRoot})

	artifact, err := c.compiler.Compile(ctx, src)
	if err != nil {
		job.Done(err)
		return nil, err
	}
	job.Done(nil)

	dir := buildDirName(src.SourceRoot, name)
	if err := artifact.SaveToPath(ctx, dir, src.SourceRoot); err != nil {
		if !errors.Is(err, fs.ErrPermission) {
			return nil, err
		}
		// Permission denied is swallowed: the in-memory build is still usable.
	} else {
		ignoreBuildDir(src.SourceRoot)
	}

	return artifact, nil
}

// ignoreBuildDir best-effort appends ignoreEntry to the source
// directory's .gitignore, if it isn't already present. Failures here
// are never fatal to a build.
func ignoreBuildDir(sourceRoot string) {
	path := filepath.Join(sourceRoot, ".gitignore")

	existing, _ := os.ReadFile(path)
	if bytes.Contains(existing, []byte(ignoreEntry)) {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString(ignoreEntry + "\n")
}
