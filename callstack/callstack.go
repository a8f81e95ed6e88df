// Package callstack implements the inlined-location model of an
// interprocedural call chain described in spec §4.1: a persistent,
// structurally-shared sequence of call and throw frames that bounds
// recursion and gives every program point (block, stack) a stable identity
// for depth bookkeeping.
package callstack

import (
	"fmt"
	"strings"

	"github.com/boundwalk/boundwalk/ir"
)

// CallSpec carries everything push_call needs about a call site; it is
// built by the caller (the engine's call transfer) from the ir.Call terminator it is
// handling.
type CallSpec struct {
	// Return is the jump taken when the callee eventually returns normally.
	Return ir.Jump
	// Recursive marks the call as closing a recursion, per the caller's or
	// domain's hint.
	Recursive bool
	Params    []ir.Var
	Locals    map[ir.Var]struct{}
	// HasHandler is true iff the call site has a landing pad.
	HasHandler bool
	Handler    ir.Jump
}

// frame is the unexported tagged union of what can live on a Stack. Frame
// values never carry F directly in the interface — the two concrete frame
// kinds do.
type frame interface {
	isFrame()
}

// callFrame records one active call: the return site, the bound-checking
// key (Return.Dst), and the domain bookkeeping needed to reconcile the
// matching return or throw.
type callFrame[F any] struct {
	recursive bool
	ret       ir.Jump
	params    []ir.Var
	locals    map[ir.Var]struct{}
	fromCall  F
	// hasHandler records whether this exact call pushed a throwFrame right
	// beneath it, so PopReturn knows to discard that paired frame too once
	// the call's dynamic extent ends normally.
	hasHandler bool
}

func (callFrame[F]) isFrame() {}

// throwFrame records a pending exception landing pad. The callFrame that
// pushed it sits immediately above it (toward the top); the call frame
// immediately below it is the one enclosing the handler.
type throwFrame struct {
	handler ir.Jump
}

func (throwFrame) isFrame() {}

// node is one cons cell of the persistent chain. Stacks that share a
// suffix share the same node pointers; pushing never mutates an existing
// node, so every Stack value obtained from an earlier point in exploration
// remains valid and unaffected by later pushes elsewhere.
type node[F any] struct {
	fr   frame
	tail *node[F]
}

// Stack is an immutable call stack. The zero value is the empty stack.
type Stack[F any] struct {
	top *node[F]
}

// Empty returns the empty call stack.
func Empty[F any]() Stack[F] {
	return Stack[F]{}
}

func push[F any](s Stack[F], fr frame) Stack[F] {
	return Stack[F]{top: &node[F]{fr: fr, tail: s.top}}
}

// PushCall composes a throw-frame push (only if call has a landing pad)
// followed by a call-frame push, refusing the whole composite push if the
// stack already holds more than bound call frames with the same return site,
// so at most bound+1 such frames are ever on it (spec §4.1, §8 bound respect).
func PushCall[F any](spec CallSpec, bound int, fromCall F, s Stack[F]) (Stack[F], bool) {
	if countByReturn(s, spec.Return) > bound {
		return s, false
	}
	if spec.HasHandler {
		s = push(s, throwFrame{handler: spec.Handler})
	}
	s = push(s, callFrame[F]{
		recursive:  spec.Recursive,
		ret:        spec.Return,
		params:     spec.Params,
		locals:     spec.Locals,
		fromCall:   fromCall,
		hasHandler: spec.HasHandler,
	})
	return s, true
}

func countByReturn[F any](s Stack[F], ret ir.Jump) int {
	n := 0
	for cur := s.top; cur != nil; cur = cur.tail {
		if cf, ok := cur.fr.(callFrame[F]); ok && cf.ret.Dst == ret.Dst {
			n++
		}
	}
	return n
}

// PopReturn discards any throw frames at the top of the stack, pops the
// first call frame, and — if that call pushed its own paired throw frame —
// discards that one too, since the dynamic extent it guarded has now ended
// normally. It returns its FromCall token, its return jump, and the
// remaining stack. It returns ok=false only for the empty stack — a Return
// terminator with no call frame below it is a top-level return.
func PopReturn[F any](s Stack[F]) (fromCall F, retn ir.Jump, rest Stack[F], ok bool) {
	cur := s.top
	for cur != nil {
		if cf, isCall := cur.fr.(callFrame[F]); isCall {
			next := cur.tail
			if cf.hasHandler {
				if next == nil {
					panic("callstack: call frame marked hasHandler but no throw frame beneath it")
				}
				next = next.tail
			}
			return cf.fromCall, cf.ret, Stack[F]{top: next}, true
		}
		// Discard a throw frame sitting above the call frame we're after.
		cur = cur.tail
	}
	var zero F
	return zero, ir.Jump{}, Stack[F]{}, false
}

// Unwind folds one call frame's caller-visible bookkeeping into an
// accumulated value while popping through frames on the way to a handler;
// see PopThrow.
type Unwind[F, S any] func(params []ir.Var, locals map[ir.Var]struct{}, fromCall F, acc S) S

// PopThrow walks the stack from the top, discarding and unwind-folding any
// call frames it passes over, until it finds a throw frame. The call frame
// immediately enclosing that throw frame (guaranteed present by the stack's
// well-formedness invariant) is popped too and returned directly — it is
// not folded through unwind, since the caller (engine.transferThrow) still needs
// its FromCall token to compute the handler's entry state itself. Returns
// ok=false if the exception escapes every frame (stack exhausted with no
// throw frame found).
func PopThrow[F, S any](s Stack[F], init S, unwind Unwind[F, S]) (fromCall F, handler ir.Jump, rest Stack[F], acc S, ok bool) {
	acc = init
	cur := s.top
	for cur != nil {
		switch fr := cur.fr.(type) {
		case callFrame[F]:
			acc = unwind(fr.params, fr.locals, fr.fromCall, acc)
			cur = cur.tail
		case throwFrame:
			if cur.tail == nil {
				panic("callstack: throw frame with no enclosing call frame")
			}
			enclosing, isCall := cur.tail.fr.(callFrame[F])
			if !isCall {
				panic("callstack: throw frame not immediately enclosed by a call frame")
			}
			return enclosing.fromCall, fr.handler, Stack[F]{top: cur.tail.tail}, acc, true
		default:
			panic(fmt.Sprintf("callstack: unknown frame kind %T", fr))
		}
	}
	var zero F
	return zero, ir.Jump{}, Stack[F]{}, acc, false
}

// BlockKey identifies a block independent of any particular *ir.Block
// pointer, so that two structurally-equal stacks compare equal even if
// built from distinct but equal IR (tests routinely rebuild programs). It
// is exported so the worklist package can key its depth map the same way.
func BlockKey(b *ir.Block) string {
	if b == nil {
		return "<nil>"
	}
	fn := "<nil>"
	if b.Parent != nil {
		fn = b.Parent.Name
	}
	return fmt.Sprintf("%s#%d", fn, b.SortIndex)
}

// survivors returns the frames of s that matter for inlined-location
// comparison: recursive call frames are elided (transparent), everything
// else survives in order from top to bottom.
func survivors[F any](s Stack[F]) []frame {
	var out []frame
	for cur := s.top; cur != nil; cur = cur.tail {
		if cf, ok := cur.fr.(callFrame[F]); ok && cf.recursive {
			continue
		}
		out = append(out, cur.fr)
	}
	return out
}

// CompareInlined is the canonical equivalence between stacks described in
// spec §4.1: recursive call frames are transparent, non-recursive call
// frames compare by destination block then by the rest of the stack
// (from_call is ignored), throw frames compare by handler then by the rest
// of the stack, and the empty stack is minimal. Returns -1, 0, or 1.
func CompareInlined[F any](x, y Stack[F]) int {
	xs, ys := survivors(x), survivors(y)
	for i := 0; ; i++ {
		switch {
		case i >= len(xs) && i >= len(ys):
			return 0
		case i >= len(xs):
			return -1
		case i >= len(ys):
			return 1
		}
		c := compareFrame[F](xs[i], ys[i])
		if c != 0 {
			return c
		}
	}
}

func compareFrame[F any](x, y frame) int {
	xk, xOrd := frameOrdKey[F](x)
	yk, yOrd := frameOrdKey[F](y)
	if xOrd != yOrd {
		return cmpInt(xOrd, yOrd)
	}
	return strings.Compare(xk, yk)
}

// frameOrdKey returns a comparison key and a kind-ordinal (call frames sort
// before throw frames) for one surviving frame.
func frameOrdKey[F any](f frame) (string, int) {
	switch v := f.(type) {
	case callFrame[F]:
		return BlockKey(v.ret.Dst), 0
	case throwFrame:
		return BlockKey(v.handler.Dst), 1
	default:
		panic(fmt.Sprintf("callstack: unknown frame kind %T", f))
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CanonicalKey renders the inlined-location identity of a stack as a string
// suitable for use as a map key: two stacks compare equal under
// CompareInlined iff their CanonicalKey values are equal. This is the
// engine's stand-in for a rolling hash that skips recursive frames and
// excludes from_call (spec §9 design note); a plain Go map keyed on this
// string gives the worklist's depth map correct, collision-free lookups
// without a bespoke hash table.
func CanonicalKey[F any](s Stack[F]) string {
	var b strings.Builder
	for _, f := range survivors(s) {
		k, ord := frameOrdKey[F](f)
		b.WriteByte(byte('a' + ord))
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte(';')
	}
	return b.String()
}

// Depth reports the number of frames currently on the stack (call and
// throw combined), used only for tracing/debugging output.
func (s Stack[F]) Depth() int {
	n := 0
	for cur := s.top; cur != nil; cur = cur.tail {
		n++
	}
	return n
}
