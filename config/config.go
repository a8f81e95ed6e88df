// Package config holds the engine's external interfaces (spec §6):
// exec_opts and the entry-points lookup. Construction follows the
// teacher's functional-options pattern (graph/options.go's
// WithMaxSteps/WithQueueDepth/...) so zero-value ExecOpts is never handed
// to the engine directly.
package config

import (
	"fmt"

	"github.com/boundwalk/boundwalk/ir"
)

// GlobalsMode selects which of spec §6's two shapes Globals takes.
type GlobalsMode int

const (
	// GlobalsDeclared means every function sees the same global set.
	GlobalsDeclared GlobalsMode = iota
	// GlobalsPerFunction means each function has its own used-globals set,
	// and every reachable function must have an entry.
	GlobalsPerFunction
)

// Globals is spec §6's `globals: Declared(Set<Var>) | PerFunction(Map<Var, Set<Var>>)`.
type Globals struct {
	Mode        GlobalsMode
	Declared    map[ir.Var]struct{}
	PerFunction map[string]map[ir.Var]struct{}
}

// For resolves the globals visible to fn (spec §4.4 used_globals), failing
// fatally (as a returned error, which the driver treats as fatal) if
// PerFunction mode is missing an entry for a reachable function.
func (g Globals) For(fn string) (map[ir.Var]struct{}, error) {
	switch g.Mode {
	case GlobalsDeclared:
		return g.Declared, nil
	case GlobalsPerFunction:
		set, ok := g.PerFunction[fn]
		if !ok {
			return nil, fmt.Errorf("config: globals: per-function mode has no entry for %q; the globals pre-analysis must cover every reachable function", fn)
		}
		return set, nil
	default:
		return nil, fmt.Errorf("config: globals: unknown mode %d", g.Mode)
	}
}

// ExecOpts is spec §6's exec_opts record.
type ExecOpts struct {
	// Bound is the per-edge depth bound and per-recursion-site frame count
	// bound.
	Bound int
	// SkipThrow, if true, makes Throw terminators no-ops.
	SkipThrow bool
	// FunctionSummaries enables DNF split, summary caching, and summary
	// creation on returns.
	FunctionSummaries bool
	// Globals configures how used-globals are resolved per function.
	Globals Globals
	// EntryPoints is the external "entry-points" config lookup (spec §6):
	// candidate harness entry function names, tried in order.
	EntryPoints []string
}

// Option configures an ExecOpts via New.
type Option func(*ExecOpts)

// WithBound sets the depth/recursion bound.
func WithBound(n int) Option {
	return func(o *ExecOpts) { o.Bound = n }
}

// WithSkipThrow toggles whether Throw terminators are no-ops.
func WithSkipThrow(skip bool) Option {
	return func(o *ExecOpts) { o.SkipThrow = skip }
}

// WithFunctionSummaries toggles summaries mode.
func WithFunctionSummaries(on bool) Option {
	return func(o *ExecOpts) { o.FunctionSummaries = on }
}

// WithDeclaredGlobals puts Globals in Declared mode with the given set.
func WithDeclaredGlobals(set map[ir.Var]struct{}) Option {
	return func(o *ExecOpts) {
		o.Globals = Globals{Mode: GlobalsDeclared, Declared: set}
	}
}

// WithPerFunctionGlobals puts Globals in PerFunction mode with the given
// per-function map.
func WithPerFunctionGlobals(m map[string]map[ir.Var]struct{}) Option {
	return func(o *ExecOpts) {
		o.Globals = Globals{Mode: GlobalsPerFunction, PerFunction: m}
	}
}

// WithEntryPoints sets the candidate harness entry-point names.
func WithEntryPoints(names []string) Option {
	return func(o *ExecOpts) { o.EntryPoints = names }
}

// New builds an ExecOpts from defaults (bound 0, no summaries, throws not
// skipped, empty declared globals) overridden by the given options.
func New(opts ...Option) ExecOpts {
	o := ExecOpts{
		Bound:   0,
		Globals: Globals{Mode: GlobalsDeclared, Declared: map[ir.Var]struct{}{}},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
