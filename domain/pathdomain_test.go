package domain

import (
	"testing"

	"github.com/boundwalk/boundwalk/ir"
)

func TestPathSet_UnionAndSlice(t *testing.T) {
	a := NewPathSet(3, 1)
	b := NewPathSet(1, 2)
	got := a.union(b).Slice()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Slice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice() = %v, want %v", got, want)
		}
	}
}

func TestPathSet_Has(t *testing.T) {
	s := NewPathSet(5)
	if !s.Has(5) {
		t.Fatal("Has(5) = false, want true")
	}
	if s.Has(6) {
		t.Fatal("Has(6) = true, want false")
	}
}

func TestPathDomain_Init(t *testing.T) {
	d := &PathDomain{}
	s := d.Init(nil)
	if !s.Has(0) || len(s) != 1 {
		t.Fatalf("Init(nil) = %v, want {0}", s)
	}
}

func TestPathDomain_Join(t *testing.T) {
	d := &PathDomain{}
	got := d.Join(NewPathSet(1), NewPathSet(2))
	if !got.Has(1) || !got.Has(2) || len(got) != 2 {
		t.Fatalf("Join = %v, want {1,2}", got)
	}
}

func TestPathDomain_DNF(t *testing.T) {
	d := &PathDomain{}
	parts := d.DNF(NewPathSet(1, 2, 3))
	if len(parts) != 3 {
		t.Fatalf("DNF split into %d parts, want 3", len(parts))
	}
	for _, p := range parts {
		if len(p) != 1 {
			t.Fatalf("DNF part %v is not a singleton", p)
		}
	}
}

func TestPathDomain_IsFalse(t *testing.T) {
	d := &PathDomain{}
	if !d.IsFalse(NewPathSet()) {
		t.Fatal("IsFalse(empty) = false, want true")
	}
	if d.IsFalse(NewPathSet(1)) {
		t.Fatal("IsFalse(non-empty) = true, want false")
	}
}

func TestPathDomain_ExecInst_FailInstReportsError(t *testing.T) {
	d := &PathDomain{}
	s := NewPathSet(0)

	if _, err := d.ExecInst(s, struct{}{}); err != nil {
		t.Fatalf("ExecInst(ordinary inst) returned error: %v", err)
	}
	if _, err := d.ExecInst(s, FailInst{Detail: "bad access"}); err == nil {
		t.Fatal("ExecInst(FailInst) should report an error")
	}
}

func TestPathDomain_ExecAssume_DefaultAlwaysFeasible(t *testing.T) {
	d := &PathDomain{}
	s := NewPathSet(0)
	if _, ok := d.ExecAssume(s, ir.BinOp{Op: ir.Eq, X: Key, Y: N(1)}); !ok {
		t.Fatal("default oracle should admit every assumption")
	}
}

func TestPathDomain_ExecAssume_CustomOracleRestricts(t *testing.T) {
	admits := func(e ir.Exp) bool {
		bin, ok := e.(ir.BinOp)
		if !ok {
			return true
		}
		n, ok := bin.Y.(N)
		if !ok {
			return true
		}
		switch bin.Op {
		case ir.Eq:
			return n == 1 || n == 3
		case ir.Ne:
			return true
		default:
			return true
		}
	}
	d := &PathDomain{Oracle: admits}
	s := NewPathSet(0)

	if _, ok := d.ExecAssume(s, ir.BinOp{Op: ir.Eq, X: Key, Y: N(1)}); !ok {
		t.Fatal("oracle should admit key == 1")
	}
	if _, ok := d.ExecAssume(s, ir.BinOp{Op: ir.Eq, X: Key, Y: N(2)}); ok {
		t.Fatal("oracle should refuse key == 2")
	}
}

func TestPathDomain_ResolveCallee(t *testing.T) {
	d := &PathDomain{}
	callee := &ir.Func{Name: "g"}
	lookup := func(name string) (*ir.Func, bool) {
		if name == "g" {
			return callee, true
		}
		return nil, false
	}

	fns, _ := d.ResolveCallee(lookup, CalleeName("g"), NewPathSet(0))
	if len(fns) != 1 || fns[0] != callee {
		t.Fatalf("ResolveCallee(g) = %v, want [g]", fns)
	}

	fns, _ = d.ResolveCallee(lookup, CalleeName("missing"), NewPathSet(0))
	if len(fns) != 0 {
		t.Fatalf("ResolveCallee(missing) = %v, want empty", fns)
	}

	fns, _ = d.ResolveCallee(lookup, "not-a-calleename", NewPathSet(0))
	if len(fns) != 0 {
		t.Fatalf("ResolveCallee(wrong Exp shape) = %v, want empty", fns)
	}
}

func TestPathDomain_CallPostRetnRoundTrip(t *testing.T) {
	d := &PathDomain{}
	caller := NewPathSet(7)

	entry, fc := d.Call(nil, nil, nil, nil, nil, false, caller)
	if !entry.Has(0) {
		t.Fatalf("Call entry state = %v, want {0}", entry)
	}
	if !fc.Caller.Has(7) {
		t.Fatalf("FromCall.Caller = %v, want {7}", fc.Caller)
	}

	post := d.Post(nil, fc, entry)
	retn := d.Retn(nil, nil, fc, post)
	if !retn.Has(7) {
		t.Fatalf("Retn result = %v, want to include caller's 7", retn)
	}
}

func TestPathDomain_ApplySummary(t *testing.T) {
	d := &PathDomain{}
	got, ok := d.ApplySummary(NewPathSet(1), NewPathSet(2))
	if !ok {
		t.Fatal("ApplySummary should always apply for PathDomain")
	}
	if !got.Has(1) || !got.Has(2) {
		t.Fatalf("ApplySummary result = %v, want {1,2}", got)
	}
}

func TestPathDomain_RecursionBeyondBound_DefaultsToSkip(t *testing.T) {
	d := &PathDomain{}
	if d.RecursionBeyondBound() != BoundSkip {
		t.Fatal("default Bound policy should be BoundSkip")
	}
}

func TestPathDomain_PPAndSummaryFormatting(t *testing.T) {
	d := &PathDomain{}
	s := NewPathSet(2, 1)
	if got, want := d.PP(s), "{1,2}"; got != want {
		t.Fatalf("PP(s) = %q, want %q", got, want)
	}
	if got, want := d.PPSummary(s), "{1,2}"; got != want {
		t.Fatalf("PPSummary(s) = %q, want %q", got, want)
	}
}

var _ Domain[PathSet, PathFromCall, PathSet] = (*PathDomain)(nil)
