package core

import (
	"context"
	"sort"
)

// ConstraintRecord is a single parsed version constraint against one
// package, as passed to the external solver.
type ConstraintRecord struct {
	PackageName string
	Constraint  string
}

// ConstraintEntry is one element of a ConstraintList: a dependency on
// PackageName, optionally pinned to Version, optionally Weak (present in
// the input but not itself a hard dependency to add to the build).
type ConstraintEntry struct {
	PackageName string
	Version     string
	Weak        bool
}

// ConstraintSource is the tagged variant accepted by ResolveConstraints:
// either an ordered ConstraintList or a name->constraint ConstraintMap.
type ConstraintSource interface {
	normalize() (deps []string, constraints []ConstraintRecord)
}

// ConstraintList is the sequence form of constraint input.
type ConstraintList []ConstraintEntry

func (l ConstraintList) normalize() (deps []string, constraints []ConstraintRecord) {
	for _, e := range l {
		if !e.Weak {
			deps = append(deps, e.PackageName)
		}
		if e.Version != "" {
			constraints = append(constraints, ConstraintRecord{PackageName: e.PackageName, Constraint: e.Version})
		}
	}
	return deps, constraints
}

// ConstraintMap is the mapping form of constraint input: name -> a
// constraint string in the external solver's language, or "" for "any
// version".
type ConstraintMap map[string]string

func (m ConstraintMap) normalize() (deps []string, constraints []ConstraintRecord) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic order for callers and tests

	for _, name := range names {
		deps = append(deps, name)
		if c := m[name]; c != "" {
			constraints = append(constraints, ConstraintRecord{PackageName: name, Constraint: c})
		}
	}
	return deps, constraints
}

// ResolveOptions configures a single ResolveConstraints call.
type ResolveOptions struct {
	// IgnoreProjectDeps skips reconciliation against the active
	// project's pinned versions, even if a project is configured.
	IgnoreProjectDeps bool
}

type resolverState int

const (
	resolverUnavailable resolverState = iota
	resolverReady
)

// ResolveConstraints adapts constraints to the external solver and, unless
// opts.IgnoreProjectDeps or there is no active project with a root,
// reconciles against the project's pinned versions by setting
// SolverOptions.PreviousSolution before calling the solver.
//
// If the solver has not yet been bootstrapped, ResolveConstraints returns
// ErrSolverUnavailable rather than attempting a call; callers should
// treat that as "fall back to local-only loading", distinct from the
// solver finding no solution.
func (c *CompleteCatalog) ResolveConstraints(ctx context.Context, src ConstraintSource, solverOpts SolverOptions, opts ResolveOptions) (map[string]string, error) {
	if c.resolverState != resolverReady {
		return nil, ErrSolverUnavailable
	}

	deps, constraints := src.normalize()

	if !opts.IgnoreProjectDeps && c.project != nil && c.project.RootDir() != "" {
		versions, err := c.project.GetVersions(ctx)
		if err == nil {
			solverOpts.PreviousSolution = versions
		}
	}

	return c.solver.Resolve(ctx, deps, constraints, solverOpts)
}

// bootstrapResolver marks the resolver ready when a constraint solver
// has been configured. Until then resolverState stays
// resolverUnavailable and ResolveConstraints takes the sentinel path.
func (c *CompleteCatalog) bootstrapResolver() {
	if c.solver != nil {
		c.resolverState = resolverReady
	}
}
