// Package engine implements the exploration engine's operational
// semantics (spec §4.3 Transfer, §4.4 Driver): the per-instruction and
// per-terminator transfer function, harness discovery, and the top-level
// exec_pgm / compute_summaries entry points. It is generic over any
// domain satisfying domain.Domain, and touches the IR only through the
// read-only contract in package ir.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/boundwalk/boundwalk/config"
	"github.com/boundwalk/boundwalk/domain"
	"github.com/boundwalk/boundwalk/ir"
	"github.com/boundwalk/boundwalk/metrics"
	"github.com/boundwalk/boundwalk/reporter"
	"github.com/boundwalk/boundwalk/worklist"
)

// Engine drives one exec_pgm run of a program against a domain. Every
// value it owns (worklist, summary table) lives only for that run (spec
// §3 Lifecycle); build a fresh Engine per analysis.
type Engine[S, F, M any] struct {
	prog *ir.Program
	dom  domain.Domain[S, F, M]
	opts config.ExecOpts

	report reporter.Reporter
	mets   *metrics.Metrics
	runID  string

	summaries *SummaryTable[M]
	entryFn   string
	fatal     *FatalError
	wl        *worklist.Worklist[S, F]
}

// New builds an Engine for one analysis run. A nil report or mets
// defaults to a no-op implementation, so callers that don't care about
// observability can pass nil for either.
func New[S, F, M any](prog *ir.Program, dom domain.Domain[S, F, M], opts config.ExecOpts, report reporter.Reporter, mets *metrics.Metrics) *Engine[S, F, M] {
	if report == nil {
		report = reporter.NewNullReporter()
	}
	if mets == nil {
		mets = metrics.Noop()
	}
	return &Engine[S, F, M]{
		prog:      prog,
		dom:       dom,
		opts:      opts,
		report:    report,
		mets:      mets,
		runID:     uuid.NewString(),
		summaries: NewSummaryTable[M](),
	}
}

// RunID identifies this engine's run for correlating findings and traces.
func (e *Engine[S, F, M]) RunID() string { return e.runID }

// localsWithReturn is the `locals ∪ {freturn?}` set spec §4.3/§4.4 pass
// around a function's own frame.
func localsWithReturn(fn *ir.Func) map[ir.Var]struct{} {
	out := make(map[ir.Var]struct{}, len(fn.Locals)+1)
	for _, l := range fn.Locals {
		out[l] = struct{}{}
	}
	if fn.FReturn != nil {
		out[*fn.FReturn] = struct{}{}
	}
	return out
}

// formalsAndGlobals is the `formals ∪ globals` set passed to
// create_summary (spec §4.3 step Return.Some, §4.4).
func formalsAndGlobals(fn *ir.Func, globals map[ir.Var]struct{}) map[ir.Var]struct{} {
	out := make(map[ir.Var]struct{}, len(fn.Params)+len(globals))
	for _, p := range fn.Params {
		out[p] = struct{}{}
	}
	for g := range globals {
		out[g] = struct{}{}
	}
	return out
}

// harness finds the first configured entry point that exists in the
// program with zero parameters and builds its initial state (spec §4.4
// harness). Failure to find one is fatal.
func (e *Engine[S, F, M]) harness() (*ir.Func, S, error) {
	var zero S
	for _, name := range e.opts.EntryPoints {
		fn, ok := e.prog.Func(name)
		if !ok || len(fn.Params) != 0 {
			continue
		}
		globals, err := e.opts.Globals.For(name)
		if err != nil {
			return nil, zero, fatalf("missing-globals", "%v", err)
		}
		init := e.dom.Init(e.prog.Globals)
		entryState, _ := e.dom.Call(nil, nil, nil, localsWithReturn(fn), globals, e.opts.FunctionSummaries, init)
		e.entryFn = name
		return fn, entryState, nil
	}
	return nil, zero, fatalf("missing-entry-point", "none of the configured entry points %v exist in the program with zero parameters", e.opts.EntryPoints)
}

// ExecPgm builds the harness and drives the worklist to completion (spec
// §4.4 exec_pgm). It returns a *FatalError if a structural invariant
// violation was detected while exploring.
func (e *Engine[S, F, M]) ExecPgm() error {
	fn, entryState, err := e.harness()
	if err != nil {
		return err
	}
	e.report.Trace(reporter.TraceEvent{
		RunID: e.runID,
		Msg:   "harness selected",
		Meta:  map[string]any{"entry": fn.Name, "bound": e.opts.Bound},
	})

	e.wl = worklist.Init[S, F](entryState, fn.Entry, e.opts.Bound)
	e.wl.OnPrune(e.mets.EdgePruned)
	e.mets.SetQueueDepth(e.wl.Len())
	e.wl.Run(e.dom.Join, e.transferBlock)

	if e.fatal != nil {
		return e.fatal
	}
	return nil
}

// ComputeSummaries requires function-summaries mode, runs exec_pgm, and
// returns the summary table's non-empty entries (spec §4.4
// compute_summaries).
func (e *Engine[S, F, M]) ComputeSummaries() (map[string][]M, error) {
	if !e.opts.FunctionSummaries {
		return nil, fmt.Errorf("boundwalk: compute_summaries requires function-summaries mode to be enabled")
	}
	if err := e.ExecPgm(); err != nil {
		return nil, err
	}
	return e.summaries.NonEmpty(), nil
}
