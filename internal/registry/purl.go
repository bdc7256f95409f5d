package registry

import (
	"context"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with registry-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the format expected by the registry.
// For npm: "@babel/core", for maven: "org.apache.commons:commons-lang3"
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}

	switch p.Type {
	case "npm":
		// packageurl-go keeps @ in namespace, so "@babel" + "/" + "core" = "@babel/core"
		return p.Namespace + "/" + p.Name
	case "maven":
		return p.Namespace + ":" + p.Name
	case "terraform":
		// terraform modules are namespace/name/provider, all parts needed
		return p.Namespace + "/" + p.Name
	default:
		return p.Namespace + "/" + p.Name
	}
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:cargo/serde) and version PURLs (pkg:cargo/serde@1.0.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// NewFromPURL builds the ecosystem client addressed by a PURL and returns
// the parsed components. Returns the client, full package name, and
// version (empty if not in PURL). If the PURL has a repository_url
// qualifier, it's used as the base URL for private registries.
func NewFromPURL(purl string, client *Client) (EcosystemClient, string, string, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, "", "", err
	}

	// Extract repository_url qualifier for private registry support
	baseURL := p.Qualifiers.Map()["repository_url"]

	reg, err := New(p.Type, baseURL, client)
	if err != nil {
		return nil, "", "", err
	}

	return reg, p.FullName(), p.Version, nil
}

// FetchPackageFromPURL fetches package metadata using a PURL. It backs
// BulkFetchPackagesWithConcurrency, the one PURL-driven fetch
// internal/snapshot actually needs; the per-version and per-dependency
// PURL lookups internal/snapshot doesn't use (it walks FetchVersions and
// FetchDependencies on the EcosystemClient directly instead, once per
// tracked package rather than once per version) were dropped rather than
// carried as unreachable convenience wrappers.
func FetchPackageFromPURL(ctx context.Context, purl string, client *Client) (*Package, error) {
	reg, name, _, err := NewFromPURL(purl, client)
	if err != nil {
		return nil, err
	}

	return reg.FetchPackage(ctx, name)
}
