// Package npm talks to registry.npmjs.org and adapts its package documents
// into this catalog's registry.Package/registry.Version/registry.Dependency
// shapes.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/git-pkgs/catalog/internal/registry"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	ecosystem  = "npm"
)

func init() {
	registry.Register(ecosystem, DefaultURL, func(baseURL string, client *registry.Client) registry.EcosystemClient {
		return New(baseURL, client)
	})
}

// Client is the npm registry.EcosystemClient. A package name maps
// one-to-one onto npm's "package document" endpoint, which bundles every
// published version under one request — FetchPackage, FetchVersions,
// FetchDependencies, and FetchMaintainers all read from that same
// document rather than hitting four different endpoints.
type Client struct {
	baseURL string
	client  *registry.Client
	urls    *URLs
}

func New(baseURL string, client *registry.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	c.urls = &URLs{baseURL: c.baseURL}
	return c
}

func (c *Client) Ecosystem() string {
	return ecosystem
}

func (c *Client) URLs() registry.URLBuilder {
	return c.urls
}

// packageDocument mirrors the shape npm's registry API returns for
// GET /<name>: the package's metadata plus every published version keyed
// by version number.
type packageDocument struct {
	ID          string                 `json:"_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Homepage    interface{}            `json:"homepage"`
	Repository  interface{}            `json:"repository"`
	Versions    map[string]versionInfo `json:"versions"`
	Time        map[string]string      `json:"time"`
	Maintainers []maintainerInfo       `json:"maintainers"`
	DistTags    map[string]string      `json:"dist-tags"`
}

type versionInfo struct {
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Description  string                 `json:"description"`
	Keywords     interface{}            `json:"keywords"`
	License      interface{}            `json:"license"`
	Homepage     interface{}            `json:"homepage"`
	Repository   interface{}            `json:"repository"`
	Dependencies map[string]string      `json:"dependencies"`
	DevDeps      map[string]string      `json:"devDependencies"`
	OptionalDeps map[string]string      `json:"optionalDependencies"`
	Deprecated   string                 `json:"deprecated"`
	Dist         distInfo               `json:"dist"`
	Maintainers  []maintainerInfo       `json:"maintainers"`
	NpmUser      map[string]interface{} `json:"_npmUser"`
	Engines      map[string]string      `json:"engines"`
	Funding      interface{}            `json:"funding"`
}

type distInfo struct {
	Shasum    string `json:"shasum"`
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
}

type maintainerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// fetchDocument retrieves and decodes the package document for name,
// translating a 404 into the registry package's own NotFoundError so
// callers never need to know this client talks HTTP underneath.
func (c *Client) fetchDocument(ctx context.Context, name string) (*packageDocument, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	var doc packageDocument
	if err := c.client.GetJSON(ctx, endpoint, &doc); err != nil {
		if httpErr, ok := err.(*registry.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &registry.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	return &doc, nil
}

func (c *Client) FetchPackage(ctx context.Context, name string) (*registry.Package, error) {
	doc, err := c.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	latestVersion := doc.DistTags["latest"]
	latest := latestVersionInfo(doc, latestVersion)

	return &registry.Package{
		Name:          doc.ID,
		Description:   coalesceString(latest.Description, doc.Description),
		Homepage:      extractString(doc.Homepage),
		Repository:    extractRepoURL(doc.Repository, latest.Repository),
		Licenses:      extractLicense(latest.License),
		Keywords:      extractKeywords(latest.Keywords),
		Namespace:     extractNamespace(doc.ID),
		LatestVersion: latestVersion,
		Metadata: map[string]any{
			"dist-tags": doc.DistTags,
			"funding":   latest.Funding,
		},
	}, nil
}

// latestVersionInfo picks the version doc.DistTags calls "latest", or an
// arbitrary published version when npm's dist-tags omit it (seen on some
// unpublished-then-republished packages).
func latestVersionInfo(doc *packageDocument, latestVersion string) versionInfo {
	if latestVersion != "" {
		return doc.Versions[latestVersion]
	}
	for _, v := range doc.Versions {
		return v
	}
	return versionInfo{}
}

func (c *Client) FetchVersions(ctx context.Context, name string) ([]registry.Version, error) {
	doc, err := c.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	versions := make([]registry.Version, 0, len(doc.Versions))
	for num, v := range doc.Versions {
		var publishedAt time.Time
		if timeStr, ok := doc.Time[num]; ok {
			publishedAt, _ = time.Parse(time.RFC3339, timeStr)
		}

		var status registry.VersionStatus
		if v.Deprecated != "" {
			status = registry.StatusDeprecated
		}

		versions = append(versions, registry.Version{
			Number:      num,
			PublishedAt: publishedAt,
			Licenses:    extractLicense(v.License),
			Integrity:   tarballIntegrity(v.Dist),
			Status:      status,
			Metadata: map[string]any{
				"deprecated": v.Deprecated,
				"dist":       v.Dist,
				"engines":    v.Engines,
				"_npmUser":   v.NpmUser,
				"tarball":    v.Dist.Tarball,
			},
		})
	}

	return versions, nil
}

// tarballIntegrity prefers the subresource-integrity string npm has
// published since the "integrity" field was introduced, falling back to
// the legacy sha1 shasum for older publishes that predate it.
func tarballIntegrity(d distInfo) string {
	if d.Integrity != "" {
		return d.Integrity
	}
	if d.Shasum != "" {
		return "sha1-" + d.Shasum
	}
	return ""
}

func (c *Client) FetchDependencies(ctx context.Context, name, version string) ([]registry.Dependency, error) {
	doc, err := c.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	v, ok := doc.Versions[version]
	if !ok {
		return nil, &registry.NotFoundError{Ecosystem: ecosystem, Name: name, Version: version}
	}

	var deps []registry.Dependency
	deps = append(deps, dependenciesWithScope(v.Dependencies, registry.Runtime, false)...)
	deps = append(deps, dependenciesWithScope(v.DevDeps, registry.Development, false)...)
	deps = append(deps, dependenciesWithScope(v.OptionalDeps, registry.Optional, true)...)
	return deps, nil
}

func dependenciesWithScope(reqs map[string]string, scope registry.Scope, optional bool) []registry.Dependency {
	deps := make([]registry.Dependency, 0, len(reqs))
	for depName, req := range reqs {
		deps = append(deps, registry.Dependency{
			Name:         depName,
			Requirements: req,
			Scope:        scope,
			Optional:     optional,
		})
	}
	return deps
}

func (c *Client) FetchMaintainers(ctx context.Context, name string) ([]registry.Maintainer, error) {
	doc, err := c.fetchDocument(ctx, name)
	if err != nil {
		return nil, err
	}

	maintainers := make([]registry.Maintainer, len(doc.Maintainers))
	for i, m := range doc.Maintainers {
		// npm maintainer entries carry no separate account ID; the
		// username doubles as UUID and login.
		maintainers[i] = registry.Maintainer{
			UUID:  m.Name,
			Login: m.Name,
			Email: m.Email,
		}
	}

	return maintainers, nil
}

func extractString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if arr, ok := v.([]interface{}); ok && len(arr) > 0 {
		if s, ok := arr[0].(string); ok {
			return s
		}
	}
	return ""
}

// extractRepoURL prefers the version-level repository field over the
// package-level one, since a monorepo's per-package metadata is usually
// more specific than the root manifest's.
func extractRepoURL(pkgRepo, versionRepo interface{}) string {
	for _, repo := range []interface{}{versionRepo, pkgRepo} {
		switch r := repo.(type) {
		case string:
			return normalizeGitURL(r)
		case map[string]interface{}:
			if u, ok := r["url"].(string); ok {
				return normalizeGitURL(u)
			}
		case []interface{}:
			if len(r) > 0 {
				if m, ok := r[0].(map[string]interface{}); ok {
					if u, ok := m["url"].(string); ok {
						return normalizeGitURL(u)
					}
				}
			}
		}
	}
	return ""
}

func normalizeGitURL(u string) string {
	u = strings.TrimPrefix(u, "git+")
	u = strings.TrimPrefix(u, "git://")
	u = strings.TrimSuffix(u, ".git")
	if strings.HasPrefix(u, "github.com/") {
		u = "https://" + u
	}
	return u
}

func extractLicense(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]interface{}:
		if t, ok := l["type"].(string); ok {
			return t
		}
	case []interface{}:
		var licenses []string
		for _, item := range l {
			switch li := item.(type) {
			case string:
				licenses = append(licenses, li)
			case map[string]interface{}:
				if t, ok := li["type"].(string); ok {
					licenses = append(licenses, t)
				}
			}
		}
		return strings.Join(licenses, ",")
	}
	return ""
}

func extractKeywords(v interface{}) []string {
	switch k := v.(type) {
	case []interface{}:
		keywords := make([]string, 0, len(k))
		for _, item := range k {
			if s, ok := item.(string); ok && s != "" {
				keywords = append(keywords, s)
			}
		}
		return keywords
	case []string:
		return k
	}
	return nil
}

// extractNamespace pulls the scope out of a scoped package id, e.g.
// "@babel/core" yields "babel". Unscoped packages have no namespace.
func extractNamespace(id string) string {
	if strings.HasPrefix(id, "@") && strings.Contains(id, "/") {
		parts := strings.SplitN(id, "/", 2)
		return strings.TrimPrefix(parts[0], "@")
	}
	return ""
}

func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// URLs builds npmjs.com-facing links for a package, keeping npm's
// scoped-name tarball path (the "@scope/name" -> "name" split under
// "-/") separate from the generic URLBuilder contract.
type URLs struct {
	baseURL string
}

func (u *URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
	}
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	shortName := name
	if strings.Contains(name, "/") {
		parts := strings.SplitN(name, "/", 2)
		shortName = parts[1]
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", u.baseURL, name, shortName, version)
}

func (u *URLs) Documentation(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
	}
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	namespace, pkgName := "", name
	if strings.HasPrefix(name, "@") && strings.Contains(name, "/") {
		parts := strings.SplitN(name, "/", 2)
		namespace, pkgName = parts[0], parts[1]
	}

	if namespace != "" {
		if version != "" {
			return fmt.Sprintf("pkg:npm/%s/%s@%s", namespace, pkgName, version)
		}
		return fmt.Sprintf("pkg:npm/%s/%s", namespace, pkgName)
	}

	if version != "" {
		return fmt.Sprintf("pkg:npm/%s@%s", pkgName, version)
	}
	return fmt.Sprintf("pkg:npm/%s", pkgName)
}
