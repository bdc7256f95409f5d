// Package all imports every ecosystem registry client this build carries,
// for its side effects on the registry.Register table.
//
//	import (
//		"github.com/git-pkgs/catalog/internal/registry"
//		_ "github.com/git-pkgs/catalog/all"
//	)
//
//	ecosystems := registry.SupportedEcosystems()
//	// "cargo" and "npm", in no particular order
package all

import (
	_ "github.com/git-pkgs/catalog/internal/registry/cargo"
	_ "github.com/git-pkgs/catalog/internal/registry/npm"
)
