package core

import (
	"context"

	"github.com/git-pkgs/catalog/internal/diagnostics"
)

// ServerCatalog is a read-mostly projection of the remote package
// server's state, answering "what exists upstream?". It can operate
// entirely offline from a cached snapshot.
type ServerCatalog struct {
	BaseCatalog

	source  ServerSnapshotSource
	diag    *diagnostics.Stream
	offline bool
}

// ServerCatalogConfig configures a ServerCatalog at construction.
type ServerCatalogConfig struct {
	Source  ServerSnapshotSource
	Diag    *diagnostics.Stream
	Offline bool
}

func newServerCatalog(cfg ServerCatalogConfig) *ServerCatalog {
	diag := cfg.Diag
	if diag == nil {
		diag = diagnostics.NewStream()
	}
	return &ServerCatalog{
		BaseCatalog: newBaseCatalog(),
		source:      cfg.Source,
		diag:        diag,
		offline:     cfg.Offline,
	}
}

// Initialize records the offline flag, resets state, and marks the
// catalog initialized. It performs no I/O; call Refresh to populate it.
func (s *ServerCatalog) Initialize(offline bool) {
	s.offline = offline
	s.reset()
	s.initialized = true
}

// Offline reports whether Refresh will avoid contacting the server.
func (s *ServerCatalog) Offline() bool {
	return s.offline
}

// Refresh loads the cached snapshot from disk; if not offline, it also
// asks the snapshot source to produce an updated snapshot from the
// server. An unreachable server is non-fatal: a warning is logged to the
// diagnostic stream and the cached snapshot is used instead. Collections
// are reset before whichever snapshot was obtained is ingested.
func (s *ServerCatalog) Refresh(ctx context.Context) error {
	snap := loadSnapshotWithFallback(ctx, s.source, s.offline, s.diag)
	s.reset()
	s.insertServerPackages(snap)
	s.initialized = true
	return nil
}

// loadSnapshotWithFallback implements the snapshot-loading half of
// Refresh shared by ServerCatalog and CompleteCatalog: load the cached
// snapshot, and unless offline, ask the source for an update, falling
// back to the cached snapshot (with a diagnostic warning) if the server
// is unreachable or the update itself fails.
func loadSnapshotWithFallback(ctx context.Context, source ServerSnapshotSource, offline bool, diag *diagnostics.Stream) Snapshot {
	cached, err := source.LoadCached(ctx)
	if err != nil {
		// A corrupt or missing cache yields an empty catalog, not an error.
		cached = Snapshot{}
	}

	if offline {
		return cached
	}

	updated, ok, err := source.UpdateFromServer(ctx, cached)
	switch {
	case err != nil:
		if diag != nil {
			diag.Warnf("server refresh failed, falling back to cached snapshot: %v", err)
		}
		return cached
	case !ok:
		if diag != nil {
			diag.Warnf("package server unreachable, falling back to cached snapshot")
		}
		return cached
	default:
		return updated
	}
}

// GetPackage returns the Package named name.
func (s *ServerCatalog) GetPackage(name string) (Package, bool) {
	return s.getPackage(name)
}

// GetVersion returns the Version of name at versionString.
func (s *ServerCatalog) GetVersion(name, versionString string) (Version, bool) {
	return s.getVersion(name, versionString)
}

// GetLatestVersion returns the ID of the latest version of name.
func (s *ServerCatalog) GetLatestVersion(name string) (string, bool) {
	return s.getLatestVersion(name)
}

// GetAllBuilds returns every Build referencing versionID.
func (s *ServerCatalog) GetAllBuilds(versionID string) []Build {
	return s.getAllBuilds(versionID)
}
