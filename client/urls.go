package client

// URLBuilder describes the public-facing links a package has in one
// ecosystem: its registry page, its downloadable archive, its rendered
// docs, and the PURL that identifies it across ecosystems. Each ecosystem
// package (internal/registry/npm, internal/registry/cargo) implements
// this against its own naming scheme rather than sharing one generic
// builder — npm's scoped-name download path and cargo's docs.rs
// convention don't reduce to a single template.
type URLBuilder interface {
	Registry(name, version string) string
	Download(name, version string) string
	Documentation(name, version string) string
	PURL(name, version string) string
}
