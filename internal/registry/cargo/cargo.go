// Package cargo talks to crates.io and adapts its crate documents into
// this catalog's registry.Package/registry.Version/registry.Dependency
// shapes.
package cargo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/git-pkgs/catalog/internal/registry"
)

const (
	DefaultURL = "https://crates.io"
	ecosystem  = "cargo"
)

func init() {
	registry.Register(ecosystem, DefaultURL, func(baseURL string, client *registry.Client) registry.EcosystemClient {
		return New(baseURL, client)
	})
}

// Client is the crates.io registry.EcosystemClient. Unlike npm, crates.io
// splits a crate's metadata, its dependency graph, and its owners across
// three separate endpoints, so only FetchPackage and FetchVersions share
// a request.
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

type crateDocument struct {
	Crate    crateInfo     `json:"crate"`
	Versions []versionInfo `json:"versions"`
}

type crateInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Homepage    string   `json:"homepage"`
	Repository  string   `json:"repository"`
	Keywords    []string `json:"keywords"`
	Categories  []string `json:"categories"`
	Downloads   int      `json:"downloads"`
}

type versionInfo struct {
	ID          int                    `json:"id"`
	Num         string                 `json:"num"`
	License     string                 `json:"license"`
	Checksum    string                 `json:"checksum"`
	Yanked      bool                   `json:"yanked"`
	YankMessage string                 `json:"yank_message"`
	CreatedAt   string                 `json:"created_at"`
	Downloads   int                    `json:"downloads"`
	Features    map[string][]string    `json:"features"`
	RustVersion string                 `json:"rust_version"`
	CrateSize   int                    `json:"crate_size"`
	PublishedBy map[string]interface{} `json:"published_by"`
}

type dependenciesResponse struct {
	Dependencies []dependencyInfo `json:"dependencies"`
}

type dependencyInfo struct {
	CrateID  string `json:"crate_id"`
	Req      string `json:"req"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional"`
}

type ownersResponse struct {
	Users []ownerInfo `json:"users"`
}

type ownerInfo struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// fetchCrate retrieves the crate document backing both FetchPackage and
// FetchVersions, translating a 404 into the registry package's own
// NotFoundError.
func (c *Client) fetchCrate(ctx context.Context, name string) (*crateDocument, error) {
	endpoint := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name)

	var doc crateDocument
	if err := c.client.GetJSON(ctx, endpoint, &doc); err != nil {
		if httpErr, ok := err.(*registry.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &registry.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	return &doc, nil
}

func (c *Client) FetchPackage(ctx context.Context, name string) (*registry.Package, error) {
	doc, err := c.fetchCrate(ctx, name)
	if err != nil {
		return nil, err
	}

	// crates.io reports license per version, not per crate; the most
	// recently published version stands in for the crate's license.
	var licenses string
	if len(doc.Versions) > 0 {
		licenses = doc.Versions[0].License
	}

	return &registry.Package{
		Name:        doc.Crate.ID,
		Description: doc.Crate.Description,
		Homepage:    doc.Crate.Homepage,
		Repository:  doc.Crate.Repository,
		Licenses:    licenses,
		Keywords:    doc.Crate.Keywords,
		Metadata: map[string]any{
			"categories": doc.Crate.Categories,
			"downloads":  doc.Crate.Downloads,
		},
	}, nil
}

func (c *Client) FetchVersions(ctx context.Context, name string) ([]registry.Version, error) {
	doc, err := c.fetchCrate(ctx, name)
	if err != nil {
		return nil, err
	}

	versions := make([]registry.Version, len(doc.Versions))
	for i, v := range doc.Versions {
		var publishedAt time.Time
		if v.CreatedAt != "" {
			publishedAt, _ = time.Parse(time.RFC3339, v.CreatedAt)
		}

		var status registry.VersionStatus
		if v.Yanked {
			status = registry.StatusYanked
		}

		var integrity string
		if v.Checksum != "" {
			integrity = "sha256-" + v.Checksum
		}

		versions[i] = registry.Version{
			Number:      v.Num,
			PublishedAt: publishedAt,
			Licenses:    v.License,
			Integrity:   integrity,
			Status:      status,
			Metadata: map[string]any{
				"id":           v.ID,
				"downloads":    v.Downloads,
				"features":     v.Features,
				"rust_version": v.RustVersion,
				"crate_size":   v.CrateSize,
				"published_by": v.PublishedBy,
				"yank_message": v.YankMessage,
			},
		}
	}

	return versions, nil
}

func (c *Client) FetchDependencies(ctx context.Context, name, version string) ([]registry.Dependency, error) {
	endpoint := fmt.Sprintf("%s/api/v1/crates/%s/%s/dependencies", c.baseURL, name, version)

	var resp dependenciesResponse
	if err := c.client.GetJSON(ctx, endpoint, &resp); err != nil {
		if httpErr, ok := err.(*registry.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &registry.NotFoundError{Ecosystem: ecosystem, Name: name, Version: version}
		}
		return nil, err
	}

	deps := make([]registry.Dependency, len(resp.Dependencies))
	for i, d := range resp.Dependencies {
		deps[i] = registry.Dependency{
			Name:         d.CrateID,
			Requirements: d.Req,
			Scope:        dependencyScope(d.Kind),
			Optional:     d.Optional,
		}
	}

	return deps, nil
}

// dependencyScope maps crates.io's dependency "kind" field onto this
// catalog's shared registry.Scope enum. Any kind besides "dev"/"build"
// (crates.io currently only has "normal") is treated as runtime.
func dependencyScope(kind string) registry.Scope {
	switch kind {
	case "dev":
		return registry.Development
	case "build":
		return registry.Build
	default:
		return registry.Runtime
	}
}

func (c *Client) FetchMaintainers(ctx context.Context, name string) ([]registry.Maintainer, error) {
	endpoint := fmt.Sprintf("%s/api/v1/crates/%s/owner_user", c.baseURL, name)

	var resp ownersResponse
	if err := c.client.GetJSON(ctx, endpoint, &resp); err != nil {
		if httpErr, ok := err.(*registry.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &registry.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}

	maintainers := make([]registry.Maintainer, len(resp.Users))
	for i, u := range resp.Users {
		maintainers[i] = registry.Maintainer{
			UUID:  fmt.Sprintf("%d", u.ID),
			Login: u.Login,
			Name:  u.Name,
			URL:   u.URL,
		}
	}

	return maintainers, nil
}

// URLs builds crates.io/docs.rs-facing links for a package.
type URLs struct {
	baseURL string
}

func (u *URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("%s/crates/%s/%s", u.baseURL, name, version)
	}
	return fmt.Sprintf("%s/crates/%s", u.baseURL, name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("https://static.crates.io/crates/%s/%s-%s.crate", name, name, version)
}

func (u *URLs) Documentation(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://docs.rs/%s/%s", name, version)
	}
	return fmt.Sprintf("https://docs.rs/%s", name)
}

func (u *URLs) PURL(name, version string) string {
	if version != "" {
		return fmt.Sprintf("pkg:cargo/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:cargo/%s", name)
}
