package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/boundwalk/boundwalk/ir"
)

// PathSet is the trivial reference abstract state from spec §8's
// end-to-end scenarios: State = Set<PathId>, joined by union. It carries
// no variable bindings — PathDomain's instructions are nops — so it
// exercises the engine's control-flow mechanics (call/return/throw,
// bounding, summaries) without needing a real numeric or pointer domain.
type PathSet map[int]struct{}

// NewPathSet builds a PathSet containing exactly the given path ids.
func NewPathSet(ids ...int) PathSet {
	s := make(PathSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member.
func (s PathSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the set's members in sorted order, for deterministic
// assertions in tests.
func (s PathSet) Slice() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (s PathSet) union(o PathSet) PathSet {
	out := make(PathSet, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

func (s PathSet) String() string {
	ids := s.Slice()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// PathFromCall is PathDomain's FromCall: the caller's state at the call
// site, restored (unioned with the callee's contribution) on return.
type PathFromCall struct {
	Caller PathSet
}

// FailInst is a sentinel instruction PathDomain.ExecInst recognizes as an
// invalid access, letting tests exercise the class-1 reporting path
// (spec §7) without a real domain's validity checking.
type FailInst struct{ Detail string }

// CalleeName is the Exp shape PathDomain.ResolveCallee expects for a
// direct call: the callee's function name.
type CalleeName string

// key is the type of the sentinel switch key Key.
type key struct{}

// Key is the Exp a test program's Switch/Iswitch Key field holds. The
// engine turns each case into an ir.BinOp{Eq|Ne, Key, N} assumption, and
// PathDomain.ExecAssume passes that expression unchanged to Oracle, which
// inspects it; with a nil Oracle every assumption succeeds. N is the
// integer to compare the switch key against.
var Key = key{}

// N wraps an integer case label for use as a Switch/Iswitch case/label Exp.
type N int

// PathDomain is spec §8's trivial oracle domain, configurable per test
// scenario: Oracle decides assume feasibility (default: always true, per
// §8's "assumes always succeed" baseline; scenario 4 overrides it to model
// a refined oracle), Intrinsic decides intrinsic interception (default:
// none), and Bound decides the recursion-beyond-bound policy (default
// Skip).
type PathDomain struct {
	// Oracle decides whether an assumed expression is feasible. Given nil,
	// every assumption succeeds.
	Oracle func(e ir.Exp) bool
	// Intrinsic, given non-nil, is consulted before ordinary call
	// resolution for every callee name.
	Intrinsic func(s PathSet, areturn *ir.Var, name string, args []ir.Exp) (PathSet, IntrinsicResult, error)
	// Bound is returned by RecursionBeyondBound; default BoundSkip.
	Bound BoundPolicy
}

func (d *PathDomain) Init(globals map[ir.Var]struct{}) PathSet {
	return NewPathSet(0)
}

func (d *PathDomain) Join(a, b PathSet) PathSet {
	return a.union(b)
}

func (d *PathDomain) DNF(s PathSet) []PathSet {
	ids := s.Slice()
	out := make([]PathSet, len(ids))
	for i, id := range ids {
		out[i] = NewPathSet(id)
	}
	return out
}

func (d *PathDomain) IsFalse(s PathSet) bool {
	return len(s) == 0
}

func (d *PathDomain) ExecInst(s PathSet, inst ir.Inst) (PathSet, error) {
	if f, ok := inst.(FailInst); ok {
		detail := f.Detail
		if detail == "" {
			detail = "invalid instruction"
		}
		return s, fmt.Errorf("%s", detail)
	}
	return s, nil
}

func (d *PathDomain) ExecMove(s PathSet, v ir.Var, e ir.Exp) PathSet {
	return s
}

func (d *PathDomain) ExecKill(s PathSet, v ir.Var) PathSet {
	return s
}

func (d *PathDomain) ExecAssume(s PathSet, e ir.Exp) (PathSet, bool) {
	if d.Oracle == nil {
		return s, true
	}
	return s, d.Oracle(e)
}

func (d *PathDomain) ExecIntrinsic(s PathSet, areturn *ir.Var, name string, args []ir.Exp) (PathSet, IntrinsicResult, error) {
	if d.Intrinsic == nil {
		return s, NotIntrinsic, nil
	}
	return d.Intrinsic(s, areturn, name, args)
}

func (d *PathDomain) ResolveCallee(lookup ir.CalleeLookup, callee ir.Exp, s PathSet) ([]*ir.Func, PathSet) {
	name, ok := callee.(CalleeName)
	if !ok {
		return nil, s
	}
	fn, ok := lookup(string(name))
	if !ok {
		return nil, s
	}
	return []*ir.Func{fn}, s
}

func (d *PathDomain) Call(args []ir.Exp, areturn *ir.Var, params []ir.Var, locals map[ir.Var]struct{}, globals map[ir.Var]struct{}, summaries bool, s PathSet) (PathSet, PathFromCall) {
	return NewPathSet(0), PathFromCall{Caller: s}
}

func (d *PathDomain) Post(locals map[ir.Var]struct{}, fc PathFromCall, s PathSet) PathSet {
	return s
}

func (d *PathDomain) Retn(params []ir.Var, freturn *ir.Var, fc PathFromCall, s PathSet) PathSet {
	return fc.Caller.union(s)
}

func (d *PathDomain) ApplySummary(s PathSet, summary PathSet) (PathSet, bool) {
	return s.union(summary), true
}

func (d *PathDomain) CreateSummary(locals map[ir.Var]struct{}, formals map[ir.Var]struct{}, s PathSet) (PathSet, PathSet) {
	return s, s
}

func (d *PathDomain) RecursionBeyondBound() BoundPolicy {
	return d.Bound
}

func (d *PathDomain) ReportThunk(s PathSet) func() string {
	return func() string { return s.String() }
}

func (d *PathDomain) PP(s PathSet) string {
	return s.String()
}

func (d *PathDomain) PPSummary(m PathSet) string {
	return m.String()
}

var _ Domain[PathSet, PathFromCall, PathSet] = (*PathDomain)(nil)
