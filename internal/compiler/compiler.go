// Package compiler implements core.Compiler and core.BuiltArtifact: it
// turns a parsed local source directory into an on-disk build, and can
// later reload that build to check whether it is still up to date.
//
// The archive format is deliberately minimal (tar+gzip over the source
// tree, keyed by a content hash) since the spec this package serves
// explicitly places the binary format of built packages out of scope.
package compiler

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/git-pkgs/catalog/internal/core"
	"github.com/git-pkgs/catalog/internal/sourceparser"
)

const (
	archiveName = "build.tar.gz"
	hashName    = "source.sha256"
	defaultArch = "any"
)

// Compiler builds local source packages by archiving their source tree.
type Compiler struct {
	// Architecture is recorded on every artifact this Compiler produces.
	Architecture string
}

// New returns a Compiler targeting the given architecture; an empty
// value defaults to "any" (architecture-independent).
func New(architecture string) *Compiler {
	if architecture == "" {
		architecture = defaultArch
	}
	return &Compiler{Architecture: architecture}
}

// BuildOrderConstraints reads the source's declared build-order
// dependencies via internal/sourceparser.
func (c *Compiler) BuildOrderConstraints(ctx context.Context, src *core.PackageSource) ([]core.BuildOrderDependency, error) {
	return sourceparser.BuildOrderDependencies(src.SourceRoot)
}

// Compile hashes the source tree and packages it into an in-memory
// Artifact. Compile does not touch disk beyond reading the source tree;
// persistence is SaveToPath's job.
func (c *Compiler) Compile(ctx context.Context, src *core.PackageSource) (core.BuiltArtifact, error) {
	var buf bytes.Buffer
	hash, err := archiveDir(&buf, src.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("compiler: archiving %s: %w", src.SourceRoot, err)
	}
	return &Artifact{
		architectures: []string{c.Architecture},
		archive:       buf.Bytes(),
		sourceHash:    hash,
	}, nil
}

// CheckUpToDate compares the artifact's recorded source hash against a
// fresh hash of the current source tree.
func (c *Compiler) CheckUpToDate(ctx context.Context, src *core.PackageSource, artifact core.BuiltArtifact) (bool, error) {
	a, ok := artifact.(*Artifact)
	if !ok || a.sourceHash == "" {
		return false, nil
	}
	current, err := hashDir(src.SourceRoot)
	if err != nil {
		return false, err
	}
	return current == a.sourceHash, nil
}

// Artifact is a core.BuiltArtifact: a gzip-compressed tar of the source
// tree at the time it was built, tagged with the source hash that
// produced it.
type Artifact struct {
	architectures []string
	archive       []byte
	sourceHash    string
}

// Architectures returns the architectures this artifact was built for.
func (a *Artifact) Architectures() []string {
	return a.architectures
}

// SaveToPath writes the archive and its source hash into dir, creating
// it if necessary.
func (a *Artifact) SaveToPath(ctx context.Context, dir, buildOfPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, archiveName), a.archive, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, hashName), []byte(a.sourceHash), 0o644)
}

// InitFromPath loads a previously saved build from dir. It fails if
// either file is missing, which callers treat as "no usable cached
// build" rather than propagating the error further.
func (a *Artifact) InitFromPath(ctx context.Context, name, dir, buildOfPath string) error {
	archive, err := os.ReadFile(filepath.Join(dir, archiveName))
	if err != nil {
		return err
	}
	hash, err := os.ReadFile(filepath.Join(dir, hashName))
	if err != nil {
		return err
	}
	a.archive = archive
	a.sourceHash = string(hash)
	if len(a.architectures) == 0 {
		a.architectures = []string{defaultArch}
	}
	return nil
}

// archiveDir writes a deterministic tar+gzip stream of dir to w, skipping
// any ".build.*" build-cache directories, and returns a hash of the
// archived files' contents in sorted path order. Tar headers (names,
// modes, times) are not part of the hash.
func archiveDir(w io.Writer, dir string) (string, error) {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	h := sha256.New()
	mw := io.MultiWriter(tw, h)

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Base(path) != filepath.Base(dir) && matchesIgnoredBuildDir(filepath.Base(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return "", err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(mw, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashDir recomputes the same content hash archiveDir produces, without
// keeping the archived bytes around.
func hashDir(dir string) (string, error) {
	return archiveDir(io.Discard, dir)
}

func matchesIgnoredBuildDir(name string) bool {
	matched, _ := filepath.Match(".build.*", name)
	return matched
}
