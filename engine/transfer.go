package engine

import (
	"fmt"

	"github.com/boundwalk/boundwalk/callstack"
	"github.com/boundwalk/boundwalk/domain"
	"github.com/boundwalk/boundwalk/ir"
	"github.com/boundwalk/boundwalk/reporter"
	"github.com/boundwalk/boundwalk/worklist"
)

// transferBlock is the worklist.Transfer this engine drives: it runs the
// block's instructions through the domain, then dispatches on its
// terminator (spec §4.3). Once a structural invariant failure has
// latched e.fatal, every further call is a no-op so the remainder of the
// queue drains without doing any more real work.
func (e *Engine[S, F, M]) transferBlock(stk callstack.Stack[F], state S, dst *ir.Block) worklist.Transform[S, F] {
	if e.fatal != nil {
		return worklist.Skip[S, F]()
	}
	if e.wl != nil {
		e.mets.SetQueueDepth(e.wl.Len())
	}
	e.mets.EdgeProcessed()

	fn := dst.Parent
	for _, inst := range dst.Cmnd {
		next, err := e.dom.ExecInst(state, inst)
		if err != nil {
			e.report.InvalidAccessInst(reporter.Finding{
				RunID:  e.runID,
				Func:   fn.Name,
				Block:  dst.Lbl,
				Kind:   "invalid-inst",
				Detail: e.dom.ReportThunk(state)(),
			})
			return worklist.Skip[S, F]()
		}
		state = next
	}

	switch term := dst.Term.(type) {
	case ir.Br:
		return worklist.Add[S, F](dst, term.Jump.Retreating, stk, state, term.Jump.Dst)
	case ir.Switch:
		return e.transferSwitch(stk, state, dst, term)
	case ir.Iswitch:
		return e.transferIswitch(stk, state, dst, term)
	case ir.Call:
		return e.transferCall(stk, state, dst, fn, term)
	case ir.Return:
		return e.transferReturn(stk, state, dst, fn, term)
	case ir.Throw:
		return e.transferThrow(stk, state, dst, fn, term)
	case ir.Unreachable:
		return worklist.Skip[S, F]()
	default:
		e.fatal = fatalf("malformed-ir", "block %s#%d has unknown terminator type %T", fn.Name, dst.SortIndex, dst.Term)
		return worklist.Skip[S, F]()
	}
}

// transferSwitch assumes key == case for each table entry, and for the
// default arm the conjunction of key != case_i over every entry,
// sequencing whichever arms turn out feasible (spec §4.3 Switch).
func (e *Engine[S, F, M]) transferSwitch(stk callstack.Stack[F], state S, dst *ir.Block, term ir.Switch) worklist.Transform[S, F] {
	var xs []worklist.Transform[S, F]

	neq := state
	neqFeasible := true
	for _, c := range term.Tbl {
		if refined, ok := e.dom.ExecAssume(state, ir.BinOp{Op: ir.Eq, X: term.Key, Y: c.Case}); ok {
			xs = append(xs, worklist.Add[S, F](dst, c.Jump.Retreating, stk, refined, c.Jump.Dst))
		}
		if neqFeasible {
			if refined, ok := e.dom.ExecAssume(neq, ir.BinOp{Op: ir.Ne, X: term.Key, Y: c.Case}); ok {
				neq = refined
			} else {
				neqFeasible = false
			}
		}
	}
	if neqFeasible {
		xs = append(xs, worklist.Add[S, F](dst, term.Els.Retreating, stk, neq, term.Els.Dst))
	}
	return worklist.SeqAll(xs...)
}

// transferIswitch assumes ptr == label(jump.dst) for each candidate,
// independently — there is no default arm (spec §4.3 Indirect switch).
func (e *Engine[S, F, M]) transferIswitch(stk callstack.Stack[F], state S, dst *ir.Block, term ir.Iswitch) worklist.Transform[S, F] {
	var xs []worklist.Transform[S, F]
	for _, j := range term.Tbl {
		if refined, ok := e.dom.ExecAssume(state, ir.BinOp{Op: ir.Eq, X: term.Ptr, Y: ir.Label{Block: j.Dst}}); ok {
			xs = append(xs, worklist.Add[S, F](dst, j.Retreating, stk, refined, j.Dst))
		}
	}
	return worklist.SeqAll(xs...)
}

// transferCall resolves the callee set, treating an empty resolution as
// an unknown call, and otherwise dispatches each resolved callee
// independently, sequencing the results (spec §4.3 Call step 1; §9 open
// question (a) — siblings in the same Call continue even if one errors).
func (e *Engine[S, F, M]) transferCall(stk callstack.Stack[F], state S, dst *ir.Block, caller *ir.Func, term ir.Call) worklist.Transform[S, F] {
	callees, state := e.dom.ResolveCallee(e.prog.Lookup(), term.Callee, state)
	if len(callees) == 0 {
		return e.unknownCall(stk, state, dst, caller, term, "<unresolved>")
	}

	var xs []worklist.Transform[S, F]
	for _, callee := range callees {
		xs = append(xs, e.transferOneCallee(stk, state, dst, caller, term, callee))
	}
	return worklist.SeqAll(xs...)
}

// transferOneCallee handles one resolved callee: intrinsic interception,
// the undefined-callee case, and otherwise the full call transition
// (spec §4.3 Call step 2).
func (e *Engine[S, F, M]) transferOneCallee(stk callstack.Stack[F], state S, dst *ir.Block, caller *ir.Func, term ir.Call, callee *ir.Func) worklist.Transform[S, F] {
	refined, res, err := e.dom.ExecIntrinsic(state, term.AReturn, callee.Name, term.Args)
	switch res {
	case domain.IntrinsicError:
		e.report.InvalidAccessTerm(reporter.Finding{
			RunID:  e.runID,
			Func:   caller.Name,
			Block:  dst.Lbl,
			Kind:   "invalid-term",
			Detail: detailOrThunk(err, e.dom.ReportThunk(state)),
		})
		return worklist.Skip[S, F]()
	case domain.IntrinsicHandled:
		if e.dom.IsFalse(refined) {
			return worklist.Skip[S, F]()
		}
		return worklist.Add[S, F](dst, term.Return.Retreating, stk, refined, term.Return.Dst)
	}

	if callee.Entry == nil {
		return e.unknownCall(stk, state, dst, caller, term, callee.Name)
	}
	return e.callTransition(stk, state, dst, caller, term, callee)
}

func detailOrThunk(err error, thunk func() string) string {
	if err != nil {
		return err.Error()
	}
	return thunk()
}

// unknownCall is the shared havoc for both an empty callee resolution and
// a resolved-but-bodiless callee (spec §4.3 Call step 1, §7 class 2):
// report, kill areturn, and jump to the return site. areturn is killed
// after reporting, which is immaterial to soundness but kept
// deterministic (spec §9 open question (b)).
func (e *Engine[S, F, M]) unknownCall(stk callstack.Stack[F], state S, dst *ir.Block, caller *ir.Func, term ir.Call, calleeName string) worklist.Transform[S, F] {
	e.report.UnknownCall(reporter.Finding{
		RunID:  e.runID,
		Func:   caller.Name,
		Block:  dst.Lbl,
		Kind:   "unknown-call",
		Detail: fmt.Sprintf("call to unresolved or undefined callee %q", calleeName),
	})
	if term.AReturn != nil {
		state = e.dom.ExecKill(state, *term.AReturn)
	}
	return worklist.Add[S, F](dst, term.Return.Retreating, stk, state, term.Return.Dst)
}

// callTransition DNF-splits the state when function-summaries mode is
// on (spec §4.3 step 3) and runs each disjunct through callOneDisjunct
// independently, unioning the results.
func (e *Engine[S, F, M]) callTransition(stk callstack.Stack[F], state S, dst *ir.Block, caller *ir.Func, term ir.Call, callee *ir.Func) worklist.Transform[S, F] {
	states := []S{state}
	if e.opts.FunctionSummaries {
		states = e.dom.DNF(state)
	}

	var xs []worklist.Transform[S, F]
	for _, s := range states {
		xs = append(xs, e.callOneDisjunct(stk, s, dst, caller, term, callee))
	}
	return worklist.SeqAll(xs...)
}

// callOneDisjunct is spec §4.3 Call step 2.c: try a cached summary first
// in summaries mode, else compute the callee's entry state and attempt to
// push a call frame, falling back to the domain's recursion-beyond-bound
// policy when the stack refuses the push.
func (e *Engine[S, F, M]) callOneDisjunct(stk callstack.Stack[F], state S, dst *ir.Block, caller *ir.Func, term ir.Call, callee *ir.Func) worklist.Transform[S, F] {
	if e.opts.FunctionSummaries {
		for _, summary := range e.summaries.For(callee.Name) {
			if post, ok := e.dom.ApplySummary(state, summary); ok {
				e.mets.SummaryCacheHit()
				return worklist.Add[S, F](dst, term.Return.Retreating, stk, post, term.Return.Dst)
			}
		}
		e.mets.SummaryCacheMiss()
	}

	globals, err := e.opts.Globals.For(callee.Name)
	if err != nil {
		e.fatal = fatalf("missing-globals", "%v", err)
		return worklist.Skip[S, F]()
	}
	locals := localsWithReturn(callee)
	entryState, fromCall := e.dom.Call(term.Args, term.AReturn, callee.Params, locals, globals, e.opts.FunctionSummaries, state)

	spec := callstack.CallSpec{
		Return:     term.Return,
		Recursive:  term.Recursive,
		Params:     callee.Params,
		Locals:     locals,
		HasHandler: term.Throw != nil,
	}
	if term.Throw != nil {
		spec.Handler = *term.Throw
	}

	pushed, ok := callstack.PushCall(spec, e.opts.Bound, fromCall, stk)
	if ok {
		return worklist.Add[S, F](dst, term.Recursive, pushed, entryState, callee.Entry)
	}

	e.mets.BoundRefusal()
	switch e.dom.RecursionBeyondBound() {
	case domain.BoundPrune:
		return worklist.Add[S, F](dst, term.Return.Retreating, stk, state, term.Return.Dst)
	default: // domain.BoundSkip
		return worklist.Skip[S, F]()
	}
}

// transferReturn computes the exit state, then either reconciles it with
// the caller via pop_return or, for a top-level return, stores an
// entry-point summary when summaries mode is on (spec §4.3 Return).
func (e *Engine[S, F, M]) transferReturn(stk callstack.Stack[F], state S, dst *ir.Block, fn *ir.Func, term ir.Return) worklist.Transform[S, F] {
	var exitState S
	switch {
	case fn.FReturn != nil && term.Exp != nil:
		exitState = e.dom.ExecMove(state, *fn.FReturn, *term.Exp)
	case fn.FReturn == nil && term.Exp == nil:
		exitState = state
	default:
		e.fatal = fatalf("malformed-ir", "function %q: return's result expression must be present iff the function declares a return variable", fn.Name)
		return worklist.Skip[S, F]()
	}

	fromCall, retnSite, rest, ok := callstack.PopReturn(stk)
	if !ok {
		if e.opts.FunctionSummaries && fn.Name == e.entryFn {
			e.storeEntrySummary(fn, exitState)
		}
		return worklist.Skip[S, F]()
	}

	locals := localsWithReturn(fn)
	post := e.dom.Post(locals, fromCall, exitState)
	if e.opts.FunctionSummaries {
		globals, err := e.opts.Globals.For(fn.Name)
		if err != nil {
			e.fatal = fatalf("missing-globals", "%v", err)
			return worklist.Skip[S, F]()
		}
		summary, rewritten := e.dom.CreateSummary(locals, formalsAndGlobals(fn, globals), post)
		e.summaries.Append(fn.Name, summary)
		e.mets.SummaryCreated()
		post = rewritten
	}
	retnState := e.dom.Retn(fn.Params, fn.FReturn, fromCall, post)
	return worklist.Add[S, F](dst, retnSite.Retreating, rest, retnState, retnSite.Dst)
}

// storeEntrySummary computes and stores a summary for an entry point's
// own top-level return, with no caller frame to scope against (spec
// §4.4 compute_summaries: "per-entry-point summaries are stored the same
// way", spec §9).
func (e *Engine[S, F, M]) storeEntrySummary(fn *ir.Func, exitState S) {
	globals, err := e.opts.Globals.For(fn.Name)
	if err != nil {
		e.fatal = fatalf("missing-globals", "%v", err)
		return
	}
	locals := localsWithReturn(fn)
	summary, _ := e.dom.CreateSummary(locals, formalsAndGlobals(fn, globals), exitState)
	e.summaries.Append(fn.Name, summary)
	e.mets.SummaryCreated()
}

// transferThrow unwinds the call stack to the nearest exception handler,
// folding each intermediate call frame's caller-visible effects via
// unwind, then reconciles the final frame with the handler (spec §4.3
// Throw). If skip_throw is on, or the exception escapes every frame, the
// path ends here.
func (e *Engine[S, F, M]) transferThrow(stk callstack.Stack[F], state S, dst *ir.Block, fn *ir.Func, term ir.Throw) worklist.Transform[S, F] {
	if e.opts.SkipThrow {
		return worklist.Skip[S, F]()
	}

	fthrow := fn.FThrow
	unwind := func(params []ir.Var, locals map[ir.Var]struct{}, fromCall F, acc S) S {
		post := e.dom.Post(locals, fromCall, acc)
		return e.dom.Retn(params, &fthrow, fromCall, post)
	}

	fromCall, handler, rest, unwound, ok := callstack.PopThrow(stk, state, unwind)
	if !ok {
		return worklist.Skip[S, F]()
	}

	exit := e.dom.ExecMove(unwound, fthrow, term.Exc)
	post := e.dom.Post(localsWithReturn(fn), fromCall, exit)
	retnState := e.dom.Retn(fn.Params, fn.FReturn, fromCall, post)
	return worklist.Add[S, F](dst, handler.Retreating, rest, retnState, handler.Dst)
}
