// Package project implements core.Project by reading a pinned-versions
// lockfile from a project's root directory. The lockfile format mirrors
// the shape found across the retrieval pack's own lockfiles: a version
// stamp plus a name -> pinned-version map.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LockfileName is the file Load looks for at a project's root.
const LockfileName = "catalog-lock.yaml"

const lockfileVersion = 1

// Lockfile is the on-disk pinned-versions manifest.
type Lockfile struct {
	Version   int               `yaml:"lockfile_version"`
	Generated time.Time         `yaml:"generated"`
	Versions  map[string]string `yaml:"versions"`
}

// Project is a core.Project backed by a Lockfile at RootDir.
type Project struct {
	root string
}

// Load returns the Project rooted at root. It reads nothing; the
// lockfile root/catalog-lock.yaml is read by GetVersions, and a missing
// lockfile is not an error: it means "no pinned versions yet", the state
// of a project that has never resolved dependencies.
func Load(root string) (*Project, error) {
	return &Project{root: root}, nil
}

// RootDir returns the project's root directory.
func (p *Project) RootDir() string {
	return p.root
}

// GetVersions returns the pinned name -> version map. A missing
// lockfile yields an empty map rather than an error, so a fresh project
// resolves as if it had never pinned anything.
func (p *Project) GetVersions(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(p.root, LockfileName))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("project: %s: %w", LockfileName, err)
	}
	if lf.Version != lockfileVersion {
		return nil, fmt.Errorf("project: %s: unsupported lockfile version %d", LockfileName, lf.Version)
	}
	if lf.Versions == nil {
		lf.Versions = map[string]string{}
	}
	return lf.Versions, nil
}

// Save writes versions to root/catalog-lock.yaml, stamped with the
// current time, so a later GetVersions, and a resolve that reconciles
// against it, sees those pins. The catalog's resolver does not call it.
func Save(root string, versions map[string]string, now time.Time) error {
	lf := Lockfile{Version: lockfileVersion, Generated: now, Versions: versions}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, LockfileName), data, 0o644)
}
