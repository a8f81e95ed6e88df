package engine

import (
	"testing"

	"github.com/boundwalk/boundwalk/config"
	"github.com/boundwalk/boundwalk/domain"
	"github.com/boundwalk/boundwalk/ir"
	"github.com/boundwalk/boundwalk/reporter"
)

// countingDomain wraps the reference PathDomain to record which tagged
// instructions ran and how many times exec_kill fired, without changing any
// of the domain's actual transfer semantics.
type countingDomain struct {
	*domain.PathDomain
	visits map[string]int
	kills  int
}

func newCountingDomain() *countingDomain {
	return &countingDomain{PathDomain: &domain.PathDomain{}, visits: map[string]int{}}
}

func (d *countingDomain) ExecInst(s domain.PathSet, inst ir.Inst) (domain.PathSet, error) {
	if tag, ok := inst.(string); ok {
		d.visits[tag]++
	}
	return d.PathDomain.ExecInst(s, inst)
}

func (d *countingDomain) ExecKill(s domain.PathSet, v ir.Var) domain.PathSet {
	d.kills++
	return d.PathDomain.ExecKill(s, v)
}

type recordingReporter struct {
	invalidInst []reporter.Finding
	invalidTerm []reporter.Finding
	unknown     []reporter.Finding
}

func (r *recordingReporter) InvalidAccessInst(f reporter.Finding) { r.invalidInst = append(r.invalidInst, f) }
func (r *recordingReporter) InvalidAccessTerm(f reporter.Finding) { r.invalidTerm = append(r.invalidTerm, f) }
func (r *recordingReporter) UnknownCall(f reporter.Finding)       { r.unknown = append(r.unknown, f) }
func (r *recordingReporter) Trace(reporter.TraceEvent)            {}


func blk(fn *ir.Func, idx int, lbl string) *ir.Block {
	return &ir.Block{Parent: fn, SortIndex: idx, Lbl: lbl}
}

func progOf(funcs ...*ir.Func) *ir.Program {
	m := make(map[string]*ir.Func, len(funcs))
	for _, f := range funcs {
		m[f.Name] = f
	}
	return &ir.Program{Funcs: m, Globals: map[ir.Var]struct{}{}}
}

// TestEndToEnd_LoopBound covers a two-block loop whose back-edge is
// bounded: with bound 2, the loop body runs exactly 3 times (the loop head
// is entered at depths 0, 1, and 2) before the back-edge to depth 3 is pruned.
func TestEndToEnd_LoopBound(t *testing.T) {
	fn := &ir.Func{Name: "loop"}
	b0 := blk(fn, 0, "b0")
	b1 := blk(fn, 1, "b1")
	b0.Term = ir.Br{Jump: ir.Jump{Dst: b1}}
	b1.Cmnd = []ir.Inst{"visit-b1"}
	b1.Term = ir.Br{Jump: ir.Jump{Dst: b0, Retreating: true}}
	fn.Entry = b0

	dom := newCountingDomain()
	opts := config.New(config.WithBound(2), config.WithEntryPoints([]string{"loop"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(fn), dom, opts, nil, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	if got := dom.visits["visit-b1"]; got != 3 {
		t.Fatalf("b1 visited %d times, want 3 (depths 0, 1, 2)", got)
	}
	if eng.wl.Len() != 0 {
		t.Fatalf("worklist not drained: Len() = %d", eng.wl.Len())
	}
}

// TestEndToEnd_RecursionBound covers mutual recursion refused by the call
// stack's per-return-site frame bound: with bound 1, each function may have
// at most 2 live frames sharing the same return site.
func TestEndToEnd_RecursionBound(t *testing.T) {
	f := &ir.Func{Name: "f"}
	g := &ir.Func{Name: "g"}

	fEntry := blk(f, 0, "f-entry")
	gEntry := blk(g, 0, "g-entry")
	fEntry.Cmnd = []ir.Inst{"visit-f"}
	gEntry.Cmnd = []ir.Inst{"visit-g"}
	f.Entry = fEntry
	g.Entry = gEntry

	fEntry.Term = ir.Call{Callee: domain.CalleeName("g"), Return: ir.Jump{Dst: fEntry, Retreating: false}, Recursive: true}
	gEntry.Term = ir.Call{Callee: domain.CalleeName("f"), Return: ir.Jump{Dst: gEntry, Retreating: false}, Recursive: true}

	dom := newCountingDomain()
	opts := config.New(config.WithBound(1), config.WithEntryPoints([]string{"f"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(f, g), dom, opts, nil, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	// f's own entry is visited once directly by the harness, plus once per
	// recursive re-entry permitted by the bound (bound+1 = 2 total frames);
	// g is only ever reached via recursion, so its visit count bounds the
	// same way. Neither may run away.
	if got := dom.visits["visit-f"]; got == 0 || got > 2 {
		t.Fatalf("f visited %d times, want 1 or 2 (bound+1 frames), never 0 or unbounded", got)
	}
	if got := dom.visits["visit-g"]; got == 0 || got > 2 {
		t.Fatalf("g visited %d times, want 1 or 2 (bound+1 frames), never 0 or unbounded", got)
	}
	if eng.wl.Len() != 0 {
		t.Fatalf("worklist not drained: Len() = %d", eng.wl.Len())
	}
}

// TestEndToEnd_ExceptionUnwinding covers a throw propagating out of a
// callee to a handler set up two calls up the stack (so pop_throw's
// enclosing-call-frame invariant has a real frame to find).
func TestEndToEnd_ExceptionUnwinding(t *testing.T) {
	run := &ir.Func{Name: "run"}
	caller := &ir.Func{Name: "caller"}
	f := &ir.Func{Name: "f"}

	runEntry := blk(run, 0, "run-entry")
	run.Entry = runEntry

	callerEntry := blk(caller, 0, "caller-entry")
	handler := blk(caller, 1, "handler")
	afterCall := blk(caller, 2, "after-call")
	handler.Cmnd = []ir.Inst{"visit-handler"}
	afterCall.Cmnd = []ir.Inst{"visit-after"}
	handler.Term = ir.Return{}
	afterCall.Term = ir.Return{}
	caller.Entry = callerEntry

	fEntry := blk(f, 0, "f-entry")
	f.Entry = fEntry
	f.FThrow = ir.Var("exc")

	runEntry.Term = ir.Call{Callee: domain.CalleeName("caller"), Return: ir.Jump{Dst: runEntry}}
	// run's own return site is never reached in this test (caller's call to
	// f always throws), but must exist for the IR to be well-formed; reuse
	// runEntry as a harmless self-target since it is never actually visited
	// again (the path ends at caller's handler).
	callerEntry.Term = ir.Call{
		Callee: domain.CalleeName("f"),
		Return: ir.Jump{Dst: afterCall},
		Throw:  &ir.Jump{Dst: handler},
	}
	fEntry.Term = ir.Throw{Exc: domain.N(0)}

	dom := newCountingDomain()
	opts := config.New(config.WithBound(5), config.WithEntryPoints([]string{"run"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(run, caller, f), dom, opts, nil, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	if dom.visits["visit-handler"] != 1 {
		t.Fatalf("handler visited %d times, want 1", dom.visits["visit-handler"])
	}
	if dom.visits["visit-after"] != 0 {
		t.Fatalf("after-call visited %d times, want 0 (the call to f always throws)", dom.visits["visit-after"])
	}
}

// TestEndToEnd_SwitchDefault covers a refined oracle admitting key == 1 but
// not key == 2, so the default arm (key not in the table) must also be
// feasible and land on the case-1 and default successors only.
func TestEndToEnd_SwitchDefault(t *testing.T) {
	fn := &ir.Func{Name: "sw"}
	entry := blk(fn, 0, "entry")
	a := blk(fn, 1, "a")
	b := blk(fn, 2, "b")
	c := blk(fn, 3, "c")
	a.Cmnd = []ir.Inst{"visit-a"}
	b.Cmnd = []ir.Inst{"visit-b"}
	c.Cmnd = []ir.Inst{"visit-c"}
	a.Term, b.Term, c.Term = ir.Return{}, ir.Return{}, ir.Return{}
	entry.Term = ir.Switch{
		Key: domain.Key,
		Tbl: []ir.SwitchCase{
			{Case: domain.N(1), Jump: ir.Jump{Dst: a}},
			{Case: domain.N(2), Jump: ir.Jump{Dst: b}},
		},
		Els: ir.Jump{Dst: c},
	}
	fn.Entry = entry

	oracle := func(e ir.Exp) bool {
		bin, ok := e.(ir.BinOp)
		if !ok {
			return true
		}
		n, ok := bin.Y.(domain.N)
		if !ok {
			return true
		}
		switch bin.Op {
		case ir.Eq:
			return n == 1
		default: // ir.Ne
			return true
		}
	}

	dom := newCountingDomain()
	dom.PathDomain.Oracle = oracle
	opts := config.New(config.WithBound(1), config.WithEntryPoints([]string{"sw"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(fn), dom, opts, nil, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	if dom.visits["visit-a"] != 1 {
		t.Fatalf("a visited %d times, want 1", dom.visits["visit-a"])
	}
	if dom.visits["visit-b"] != 0 {
		t.Fatalf("b visited %d times, want 0 (refused by the oracle)", dom.visits["visit-b"])
	}
	if dom.visits["visit-c"] != 1 {
		t.Fatalf("c (default arm) visited %d times, want 1", dom.visits["visit-c"])
	}
}

// TestEndToEnd_SummaryReuse covers a function called twice with equal entry
// states in function-summaries mode: its body must be explored exactly
// once, with the second call resolved purely by applying the cached
// summary.
func TestEndToEnd_SummaryReuse(t *testing.T) {
	main := &ir.Func{Name: "main"}
	f := &ir.Func{Name: "f"}

	mainEntry := blk(main, 0, "main-entry")
	mid := blk(main, 1, "mid")
	done := blk(main, 2, "done")
	mid.Term = ir.Call{Callee: domain.CalleeName("f"), Return: ir.Jump{Dst: done}}
	done.Term = ir.Return{}
	mainEntry.Term = ir.Call{Callee: domain.CalleeName("f"), Return: ir.Jump{Dst: mid}}
	main.Entry = mainEntry

	fEntry := blk(f, 0, "f-entry")
	fEntry.Cmnd = []ir.Inst{"visit-f"}
	fEntry.Term = ir.Return{}
	f.Entry = fEntry

	dom := newCountingDomain()
	opts := config.New(config.WithBound(5), config.WithFunctionSummaries(true), config.WithEntryPoints([]string{"main"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(main, f), dom, opts, nil, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	if got := dom.visits["visit-f"]; got != 1 {
		t.Fatalf("f's body explored %d times, want exactly 1", got)
	}
	if got := len(eng.summaries.For("f")); got != 1 {
		t.Fatalf("summaries stored for f = %d, want 1", got)
	}
}

// TestEndToEnd_UnknownCalleeHavoc covers a call to a name the program
// doesn't define: exactly one diagnostic is reported, the result variable
// is killed, and control still reaches the call's return site.
func TestEndToEnd_UnknownCalleeHavoc(t *testing.T) {
	fn := &ir.Func{Name: "main"}
	entry := blk(fn, 0, "entry")
	done := blk(fn, 1, "done")
	done.Cmnd = []ir.Inst{"visit-done"}
	done.Term = ir.Return{}
	result := ir.Var("r")
	entry.Term = ir.Call{Callee: domain.CalleeName("ghost"), AReturn: &result, Return: ir.Jump{Dst: done}}
	fn.Entry = entry

	dom := newCountingDomain()
	rep := &recordingReporter{}
	opts := config.New(config.WithBound(1), config.WithEntryPoints([]string{"main"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(fn), dom, opts, rep, nil)

	if err := eng.ExecPgm(); err != nil {
		t.Fatalf("ExecPgm: %v", err)
	}
	if len(rep.unknown) != 1 {
		t.Fatalf("unknown-call findings = %d, want 1", len(rep.unknown))
	}
	if rep.unknown[0].Kind != "unknown-call" {
		t.Fatalf("finding kind = %q, want unknown-call", rep.unknown[0].Kind)
	}
	if dom.kills != 1 {
		t.Fatalf("exec_kill calls = %d, want 1", dom.kills)
	}
	if dom.visits["visit-done"] != 1 {
		t.Fatalf("done visited %d times, want 1 (control reaches the return site)", dom.visits["visit-done"])
	}
}

// TestExecPgm_MalformedReturnSetsFatal covers the structural invariant that
// a Return's result expression must be present iff the function declares a
// return variable; a violation latches a *FatalError rather than panicking
// or silently continuing.
func TestExecPgm_MalformedReturnSetsFatal(t *testing.T) {
	fn := &ir.Func{Name: "bad"}
	entry := blk(fn, 0, "entry")
	var exp ir.Exp = domain.N(1)
	entry.Term = ir.Return{Exp: &exp} // no FReturn declared, but exp is present
	fn.Entry = entry

	dom := newCountingDomain()
	opts := config.New(config.WithEntryPoints([]string{"bad"}))
	eng := New[domain.PathSet, domain.PathFromCall, domain.PathSet](progOf(fn), dom, opts, nil, nil)

	err := eng.ExecPgm()
	if err == nil {
		t.Fatal("ExecPgm should report a fatal error for the malformed return")
	}
	var fe *FatalError
	if fe, _ = err.(*FatalError); fe == nil {
		t.Fatalf("error type = %T, want *FatalError", err)
	}
	if fe.Code != "malformed-ir" {
		t.Fatalf("FatalError.Code = %q, want malformed-ir", fe.Code)
	}
}
