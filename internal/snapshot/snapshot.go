// Package snapshot implements core.ServerSnapshotSource by bulk-fetching
// tracked packages across every registered ecosystem and caching the
// result to disk as JSON, so ServerCatalog can serve a snapshot offline
// between refreshes.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/git-pkgs/catalog/internal/core"
	"github.com/git-pkgs/catalog/internal/registry"
)

// Source is a core.ServerSnapshotSource backed by the ecosystem registry
// clients in internal/registry and a JSON file cache.
type Source struct {
	client      *registry.Client
	purls       []string
	cachePath   string
	concurrency int
}

// Option configures a Source.
type Option func(*Source)

// WithClient overrides the HTTP client used for every registry request.
func WithClient(c *registry.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithConcurrency overrides the bulk-fetch fan-out width.
func WithConcurrency(n int) Option {
	return func(s *Source) { s.concurrency = n }
}

// WithCachePath overrides where the snapshot is persisted between runs.
func WithCachePath(path string) Option {
	return func(s *Source) { s.cachePath = path }
}

const defaultConcurrency = 15

// New builds a Source tracking the given package PURLs (e.g.
// "pkg:npm/left-pad", "pkg:cargo/serde"). cacheDir defaults to
// os.UserCacheDir()/git-pkgs-catalog/snapshot.json when empty.
func New(purls []string, cacheDir string, opts ...Option) *Source {
	s := &Source{
		client:      registry.DefaultClient(),
		purls:       purls,
		concurrency: defaultConcurrency,
	}
	if cacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(dir, "git-pkgs-catalog")
		}
	}
	if cacheDir != "" {
		s.cachePath = filepath.Join(cacheDir, "snapshot.json")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// diskSnapshot is the JSON-serializable cache format.
type diskSnapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Packages  []core.Package `json:"packages"`
	Versions  []core.Version `json:"versions"`
	Builds    []core.Build   `json:"builds"`
}

// LoadCached reads the on-disk snapshot cache. A missing or corrupt cache
// yields an empty snapshot, never an error.
func (s *Source) LoadCached(ctx context.Context) (core.Snapshot, error) {
	if s.cachePath == "" {
		return core.Snapshot{}, nil
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return core.Snapshot{}, nil
	}
	var disk diskSnapshot
	if err := json.Unmarshal(data, &disk); err != nil {
		return core.Snapshot{}, nil
	}
	return core.Snapshot{Packages: disk.Packages, Versions: disk.Versions, Builds: disk.Builds}, nil
}

// UpdateFromServer bulk-fetches every tracked PURL's package metadata in
// parallel, then fetches each fetched package's versions, dependencies,
// and maintainers one package at a time, and writes the result to the
// disk cache. Per-package fetch failures are dropped from the result
// rather than failing the whole refresh, matching
// registry.BulkFetchPackagesWithConcurrency's "best effort" contract; ok is false only
// when every tracked package failed to resolve, treated as "the server is
// unreachable".
func (s *Source) UpdateFromServer(ctx context.Context, prev core.Snapshot) (core.Snapshot, bool, error) {
	if len(s.purls) == 0 {
		snap := core.Snapshot{}
		s.persist(snap)
		return snap, true, nil
	}

	packages := registry.BulkFetchPackagesWithConcurrency(ctx, s.purls, s.client, s.concurrency)
	if len(packages) == 0 {
		return core.Snapshot{}, false, nil
	}

	names := make([]string, 0, len(s.purls))
	for _, purl := range s.purls {
		names = append(names, purl)
	}
	sort.Strings(names)

	var snap core.Snapshot
	for _, purl := range names {
		pkg, ok := packages[purl]
		if !ok {
			continue
		}

		reg, fullName, _, err := registry.NewFromPURL(purl, s.client)
		if err != nil {
			continue
		}

		versions, err := reg.FetchVersions(ctx, fullName)
		if err != nil {
			continue
		}
		maintainers, err := reg.FetchMaintainers(ctx, fullName)
		if err != nil {
			maintainers = nil
		}

		snap.Packages = append(snap.Packages, core.Package{
			Name:        fullName,
			Maintainers: convertMaintainers(maintainers),
			LastUpdated: time.Now(),
		})

		for _, v := range versions {
			deps, err := reg.FetchDependencies(ctx, fullName, v.Number)
			if err != nil {
				deps = nil
			}
			id := reg.Ecosystem() + ":" + fullName + "@" + v.Number
			snap.Versions = append(snap.Versions, core.Version{
				ID:            id,
				PackageName:   fullName,
				VersionString: v.Number,
				Dependencies:  convertDependencies(deps),
				Description:   pkg.Description,
			})
			if v.Status == registry.StatusNone {
				snap.Builds = append(snap.Builds, core.Build{
					PackageName:  fullName,
					VersionID:    id,
					Architecture: "any",
				})
			}
		}
	}

	s.persist(snap)
	return snap, true, nil
}

func (s *Source) persist(snap core.Snapshot) {
	if s.cachePath == "" {
		return
	}
	disk := diskSnapshot{FetchedAt: time.Now(), Packages: snap.Packages, Versions: snap.Versions, Builds: snap.Builds}
	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(s.cachePath, data, 0o644)
}

func convertMaintainers(in []registry.Maintainer) []core.Maintainer {
	if in == nil {
		return nil
	}
	out := make([]core.Maintainer, len(in))
	for i, m := range in {
		out[i] = core.Maintainer{Login: m.Login, Name: m.Name, Email: m.Email}
	}
	return out
}

func convertDependencies(in []registry.Dependency) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for _, d := range in {
		if d.Scope == registry.Development || d.Scope == registry.Test {
			continue
		}
		out[d.Name] = d.Requirements
	}
	return out
}
