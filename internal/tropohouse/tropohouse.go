// Package tropohouse implements core.Tropohouse: an on-disk store of
// downloaded, built non-local packages, keyed by name and version. A
// package missing from the store is fetched on demand through
// internal/fetch, and the downloaded archive file is saved into the
// package's directory as it is; it is not unpacked.
package tropohouse

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/git-pkgs/catalog/internal/fetch"
)

// Ecosystem resolves a package name to the ecosystem string
// internal/fetch.Resolver needs to look up a download URL.
type Ecosystem func(name string) string

// Tropohouse is a core.Tropohouse backed by a directory of downloaded
// packages, one subdirectory per "ecosystem/name/version".
type Tropohouse struct {
	root      string
	resolver  *fetch.Resolver
	fetcher   fetch.FetcherInterface
	ecosystem Ecosystem
}

// Option configures a Tropohouse.
type Option func(*Tropohouse)

// WithFetcher overrides the artifact fetcher (a *fetch.CircuitBreakerFetcher
// or a test double).
func WithFetcher(f fetch.FetcherInterface) Option {
	return func(t *Tropohouse) { t.fetcher = f }
}

// New returns a Tropohouse rooted at root, resolving download URLs
// through resolver and classifying package names into ecosystems via
// ecosystem. Downloads default to going through a CircuitBreakerFetcher,
// so an upstream host that starts failing repeatedly stops taking further
// build-blocking requests instead of retrying it into the ground; Health
// exposes the resulting per-host breaker state.
func New(root string, resolver *fetch.Resolver, ecosystem Ecosystem, opts ...Option) *Tropohouse {
	t := &Tropohouse{
		root:      root,
		resolver:  resolver,
		fetcher:   fetch.NewCircuitBreakerFetcher(fetch.NewFetcher()),
		ecosystem: ecosystem,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Health reports the open/closed state of each upstream host's circuit
// breaker, keyed by host. Returns nil if the configured fetcher isn't a
// *fetch.CircuitBreakerFetcher (e.g. a test double installed via
// WithFetcher).
func (t *Tropohouse) Health() map[string]string {
	cb, ok := t.fetcher.(*fetch.CircuitBreakerFetcher)
	if !ok {
		return nil
	}
	return cb.BreakerState()
}

func (t *Tropohouse) dir(name, version string) string {
	return filepath.Join(t.root, t.ecosystem(name), sanitize(name), version)
}

// sanitize replaces path separators in scoped package names (e.g.
// npm's "@scope/name") so they don't escape the tropohouse layout.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' || r == filepath.Separator {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// PackagePath returns the local directory holding name@version, first
// downloading its archive into that directory (not unpacked) if the
// directory isn't already present. An empty result
// with a nil error means "not resolvable" (unknown ecosystem, no
// download URL); callers treat that as "package not found" rather than
// a hard failure.
func (t *Tropohouse) PackagePath(ctx context.Context, name, version string) (string, error) {
	dir := t.dir(name, version)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	info, err := t.resolver.Resolve(ctx, t.ecosystem(name), name, version)
	if err != nil {
		return "", nil
	}

	artifact, err := t.fetcher.Fetch(ctx, info.URL)
	if err != nil {
		return "", fmt.Errorf("tropohouse: fetching %s@%s: %w", name, version, err)
	}
	defer artifact.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest, err := os.Create(filepath.Join(dir, info.Filename))
	if err != nil {
		return "", err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, artifact.Body); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("tropohouse: saving %s@%s: %w", name, version, err)
	}

	return dir, nil
}
