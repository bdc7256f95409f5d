package registry

import (
	"fmt"

	"github.com/git-pkgs/catalog/client"
)

// Transport-level error types live in the client package; aliased here so
// ecosystem clients can type-assert on them without importing client
// directly.
type (
	HTTPError      = client.HTTPError
	RateLimitError = client.RateLimitError
)

// ErrNotFound is returned when a package or version is not found.
var ErrNotFound = client.ErrNotFound

// NotFoundError wraps ErrNotFound with ecosystem context.
type NotFoundError struct {
	Ecosystem string
	Name      string
	Version   string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: package %s version %s not found", e.Ecosystem, e.Name, e.Version)
	}
	return fmt.Sprintf("%s: package %s not found", e.Ecosystem, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
