package core

import (
	"errors"
	"sort"
	"strings"
)

var errNotNumeric = errors.New("not numeric")

// BaseCatalog owns the three indexed collections shared by ServerCatalog
// and CompleteCatalog and the query primitives built on top of them.
type BaseCatalog struct {
	initialized bool

	packages map[string]Package            // name -> Package
	versions map[string]Version            // id -> Version
	builds   []Build

	// versionsByPackage indexes versions.ID by PackageName for
	// getLatestVersion and the override algorithm; kept in step with
	// versions by every mutating method below.
	versionsByPackage map[string][]string // packageName -> []versionID
}

func newBaseCatalog() BaseCatalog {
	return BaseCatalog{
		packages:          make(map[string]Package),
		versions:          make(map[string]Version),
		versionsByPackage: make(map[string][]string),
	}
}

// reset clears all three collections. The initialized flag is left as
// it is; callers set it after repopulating.
func (b *BaseCatalog) reset() {
	b.packages = make(map[string]Package)
	b.versions = make(map[string]Version)
	b.versionsByPackage = make(map[string][]string)
	b.builds = nil
}

func (b *BaseCatalog) requireInitialized() error {
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}

// getPackage returns the Package named name, or ok=false if absent.
func (b *BaseCatalog) getPackage(name string) (Package, bool) {
	p, ok := b.packages[name]
	return p, ok
}

// getVersion returns the Version of name at versionString, or ok=false.
func (b *BaseCatalog) getVersion(name, versionString string) (Version, bool) {
	for _, id := range b.versionsByPackage[name] {
		v := b.versions[id]
		if v.VersionString == versionString {
			return v, true
		}
	}
	return Version{}, false
}

// getVersionByID returns the Version with the given id.
func (b *BaseCatalog) getVersionByID(id string) (Version, bool) {
	v, ok := b.versions[id]
	return v, ok
}

// getLatestVersion returns the ID of the latest version of name by
// semver-like ordering, ignoring any build suffix, or ok=false.
func (b *BaseCatalog) getLatestVersion(name string) (string, bool) {
	ids := b.versionsByPackage[name]
	if len(ids) == 0 {
		return "", false
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		vi := b.versions[sorted[i]]
		vj := b.versions[sorted[j]]
		return compareVersions(baseVersion(vi.VersionString), baseVersion(vj.VersionString)) > 0
	})
	return sorted[0], true
}

// getAllBuilds returns every Build referencing versionID.
func (b *BaseCatalog) getAllBuilds(versionID string) []Build {
	var out []Build
	for _, build := range b.builds {
		if build.VersionID == versionID {
			out = append(out, build)
		}
	}
	return out
}

// insertServerPackages ingests a Snapshot's collections without
// deduplication beyond what the snapshot itself guarantees.
func (b *BaseCatalog) insertServerPackages(snap Snapshot) {
	for _, p := range snap.Packages {
		b.packages[p.Name] = p
	}
	for _, v := range snap.Versions {
		b.versions[v.ID] = v
		b.versionsByPackage[v.PackageName] = append(b.versionsByPackage[v.PackageName], v.ID)
	}
	b.builds = append(b.builds, snap.Builds...)
}

// baseVersion strips a "+..." build suffix for comparison purposes.
func baseVersion(v string) string {
	if idx := strings.IndexByte(v, '+'); idx >= 0 {
		return v[:idx]
	}
	return v
}

// compareVersions compares two dotted numeric version strings
// component-wise, returning <0, 0, >0. Non-numeric components compare
// lexically. This is not a full semver implementation (see
// internal/solver); it exists only to order versions for
// getLatestVersion.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var ac, bc string
		if i < len(as) {
			ac = as[i]
		}
		if i < len(bs) {
			bc = bs[i]
		}
		if ac == bc {
			continue
		}
		an, aerr := parseNumeric(ac)
		bn, berr := parseNumeric(bc)
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if ac < bc {
			return -1
		}
		return 1
	}
	return 0
}

func parseNumeric(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errNotNumeric
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotNumeric
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
