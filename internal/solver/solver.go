// Package solver implements core.ConstraintSolver: a greedy resolver that
// picks, for each dependency, the highest available version compatible
// with every constraint against it and with the caller's previous
// solution where one is pinned.
//
// This is deliberately not a full SAT/PubGrub-style solver — see
// DESIGN.md for why the teacher's github.com/git-pkgs/vers dependency was
// dropped in favor of a small stdlib comparator instead of a guessed
// call surface.
package solver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/git-pkgs/catalog/internal/core"
)

// AvailableVersions supplies every version known to exist for a
// dependency name, newest-first order not required.
type AvailableVersions func(name string) []string

// Solver is a core.ConstraintSolver picking the highest version of each
// dependency satisfying every constraint gathered against it.
type Solver struct {
	versions AvailableVersions
}

// New returns a Solver querying available versions through versions.
func New(versions AvailableVersions) *Solver {
	return &Solver{versions: versions}
}

// unsatisfiableError names the dependency and constraints that produced
// no candidate version.
type unsatisfiableError struct {
	name        string
	constraints []string
}

func (e *unsatisfiableError) Error() string {
	return fmt.Sprintf("solver: no version of %q satisfies %s", e.name, strings.Join(e.constraints, ", "))
}

// Resolve picks one version per name in deps. A name pinned in
// opts.PreviousSolution is kept as-is when it still satisfies every
// gathered constraint against it, so an already-resolved project doesn't
// churn its lockfile on every re-resolve.
func (s *Solver) Resolve(ctx context.Context, deps []string, constraints []core.ConstraintRecord, opts core.SolverOptions) (map[string]string, error) {
	byName := make(map[string][]string)
	for _, c := range constraints {
		byName[c.PackageName] = append(byName[c.PackageName], c.Constraint)
	}

	result := make(map[string]string, len(deps))
	for _, name := range deps {
		want := byName[name]

		if pinned, ok := opts.PreviousSolution[name]; ok && satisfiesAll(pinned, want) {
			result[name] = pinned
			continue
		}

		candidates := s.versions(name)
		best, ok := highestSatisfying(candidates, want)
		if !ok {
			return nil, &unsatisfiableError{name: name, constraints: want}
		}
		result[name] = best
	}
	return result, nil
}

// highestSatisfying returns the highest of candidates that satisfies
// every constraint in want, comparing dot-separated numeric versions.
func highestSatisfying(candidates, want []string) (string, bool) {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return compare(sorted[i], sorted[j]) > 0
	})

	for _, v := range sorted {
		if satisfiesAll(v, want) {
			return v, true
		}
	}
	return "", false
}

func satisfiesAll(version string, constraints []string) bool {
	for _, c := range constraints {
		if !satisfies(version, c) {
			return false
		}
	}
	return true
}

// satisfies supports the constraint grammars a package descriptor is
// likely to write by hand: exact ("1.2.3"), caret ("^1.2.3": same major,
// >= given version), and comparison operators (">=1.2.3", ">1.2.3",
// "<=1.2.3", "<1.2.3"). An empty constraint always satisfies.
func satisfies(version, constraint string) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true
	}

	switch {
	case strings.HasPrefix(constraint, "^"):
		base := constraint[1:]
		if compare(version, base) < 0 {
			return false
		}
		return majorOf(version) == majorOf(base)
	case strings.HasPrefix(constraint, ">="):
		return compare(version, constraint[2:]) >= 0
	case strings.HasPrefix(constraint, "<="):
		return compare(version, constraint[2:]) <= 0
	case strings.HasPrefix(constraint, ">"):
		return compare(version, constraint[1:]) > 0
	case strings.HasPrefix(constraint, "<"):
		return compare(version, constraint[1:]) < 0
	default:
		return compare(version, constraint) == 0
	}
}

func majorOf(v string) string {
	parts := strings.SplitN(v, ".", 2)
	return parts[0]
}

// compare compares two dot-separated numeric version strings
// component-wise, returning <0, 0, >0. Non-numeric components fall back
// to a lexical comparison, so pre-release-style suffixes still order
// consistently even though they aren't given semver precedence.
func compare(a, b string) int {
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
		an, aerr := strconv.Atoi(ac)
		bn, berr := strconv.Atoi(bc)
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
