// Package worklist implements the priority-ordered frontier of exploration
// edges described in spec §4.2: a min-heap keyed by depth, per-edge depth
// tracking that bounds exploration, and join-on-dequeue merging of states
// that have arrived at the same block.
package worklist

import (
	"container/heap"
	"strings"

	"github.com/boundwalk/boundwalk/callstack"
	"github.com/boundwalk/boundwalk/ir"
)

// Edge is a pending (destination, predecessor, call-stack) triple used as
// the key for depth bookkeeping (spec §3).
type Edge[F any] struct {
	Dst *ir.Block
	Src *ir.Block
	Stk callstack.Stack[F]
}

func edgeKey[F any](e Edge[F]) string {
	var b strings.Builder
	b.WriteString(callstack.BlockKey(e.Dst))
	b.WriteByte('|')
	b.WriteString(callstack.CanonicalKey(e.Stk))
	return b.String()
}

func compareEdge[F any](a, b Edge[F]) int {
	if c := strings.Compare(callstack.BlockKey(a.Dst), callstack.BlockKey(b.Dst)); c != 0 {
		return c
	}
	return callstack.CompareInlined(a.Stk, b.Stk)
}

// item is one entry of the priority queue: a depth paired with the edge it
// was computed for.
type item[F any] struct {
	depth int
	edge  Edge[F]
}

// priorityQueue implements container/heap.Interface as a min-heap on
// (depth, edge), with the edge comparison as a deterministic tiebreak so
// that analyses are reproducible (spec §4.2, §5).
type priorityQueue[F any] []item[F]

func (q priorityQueue[F]) Len() int { return len(q) }

func (q priorityQueue[F]) Less(i, j int) bool {
	if q[i].depth != q[j].depth {
		return q[i].depth < q[j].depth
	}
	return compareEdge(q[i].edge, q[j].edge) < 0
}

func (q priorityQueue[F]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue[F]) Push(x any) { *q = append(*q, x.(item[F])) }

func (q *priorityQueue[F]) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Worklist is the engine's exploration frontier: a priority queue of
// pending edges, a depth map bounding how many times any edge may be
// transferred, and a table of states waiting at each block for the next
// dequeue of that block to fold-join them together.
//
// Worklist is not safe for concurrent use — per spec §5 the engine is
// single-threaded and sequential.
type Worklist[S, F any] struct {
	bound   int
	depths  map[string]int
	waiting map[*ir.Block][]S
	pq      *priorityQueue[F]
	onPrune func(reason string)
}

// OnPrune installs a hook invoked every time Add silently drops an edge for
// exceeding the depth bound, so callers (the engine, wiring its metrics)
// can observe pruning without Add itself depending on any instrumentation
// package. A nil hook (the default) means pruning stays silent.
func (wl *Worklist[S, F]) OnPrune(f func(reason string)) {
	wl.onPrune = f
}

// Init builds a Worklist with one enqueued edge at the entry block, depth
// zero, and an empty call stack (spec §4.2 init).
func Init[S, F any](state S, entry *ir.Block, bound int) *Worklist[S, F] {
	wl := &Worklist[S, F]{
		bound:   bound,
		depths:  make(map[string]int),
		waiting: make(map[*ir.Block][]S),
		pq:      &priorityQueue[F]{},
	}
	heap.Init(wl.pq)
	e := Edge[F]{Dst: entry, Stk: callstack.Empty[F]()}
	wl.depths[edgeKey(e)] = 0
	heap.Push(wl.pq, item[F]{depth: 0, edge: e})
	wl.waiting[entry] = append(wl.waiting[entry], state)
	return wl
}

// Transform is a deferred mutation of a Worklist, returned by Add and
// composed with Seq/SeqAll/Skip so that Transfer can build up a sequence of
// enqueue operations before any of them run.
type Transform[S, F any] func(wl *Worklist[S, F])

// Skip is the identity transform.
func Skip[S, F any]() Transform[S, F] {
	return func(*Worklist[S, F]) {}
}

// Seq composes two transforms left-then-right.
func Seq[S, F any](x, y Transform[S, F]) Transform[S, F] {
	return func(wl *Worklist[S, F]) {
		x(wl)
		y(wl)
	}
}

// SeqAll composes any number of transforms in order; it is how Transfer
// sequences the several successor edges a switch or a multi-callee call
// terminator can produce.
func SeqAll[S, F any](xs ...Transform[S, F]) Transform[S, F] {
	return func(wl *Worklist[S, F]) {
		for _, x := range xs {
			x(wl)
		}
	}
}

// Add constructs the edge {dst: block, src: prev, stk}, looks up its
// current depth (default zero), increments it if retreating, and either
// prunes the edge silently (depth would exceed bound) or records the new
// depth, heap-inserts (depth, edge), and appends state to the block's
// waiting list (spec §4.2 add).
func Add[S, F any](prev *ir.Block, retreating bool, stk callstack.Stack[F], state S, block *ir.Block) Transform[S, F] {
	return func(wl *Worklist[S, F]) {
		e := Edge[F]{Dst: block, Src: prev, Stk: stk}
		key := edgeKey(e)
		depth := wl.depths[key]
		if retreating {
			depth++
		}
		if depth > wl.bound {
			if wl.onPrune != nil {
				wl.onPrune("loop-depth")
			}
			return
		}
		wl.depths[key] = depth
		heap.Push(wl.pq, item[F]{depth: depth, edge: e})
		wl.waiting[block] = append(wl.waiting[block], state)
	}
}

// Transfer is the caller-supplied per-edge handler Run dequeues into; it
// returns the Transform describing whatever new edges its processing of
// (stk, state, dst) produced.
type Transfer[S, F any] func(stk callstack.Stack[F], state S, dst *ir.Block) Transform[S, F]

// Join merges the states waiting at a block when more than one arrived
// before it was dequeued.
type Join[S any] func(a, b S) S

// Run pops the lowest-priority (depth, edge) pair, drains and fold-joins
// every state waiting at edge.Dst (per spec §3, waiting states are keyed
// purely by block — arrivals via different call stacks to the same block
// are merged together, trading call-stack precision for a single,
// join-friendly frontier, exactly as spec §4.2's "join-on-dequeue policy"
// rationale describes), invokes f, and applies the resulting transform,
// repeating until the queue is empty.
//
// If the block's waiting list has already been drained by an earlier pop
// of a different edge that happened to target the same block, this pop is
// a no-op: the heap can hold more than one entry for a block, but only the
// first to be dequeued finds any work left to do.
func (wl *Worklist[S, F]) Run(join Join[S], f Transfer[S, F]) {
	for wl.pq.Len() > 0 {
		it := heap.Pop(wl.pq).(item[F])
		states, ok := wl.waiting[it.edge.Dst]
		if !ok || len(states) == 0 {
			continue
		}
		delete(wl.waiting, it.edge.Dst)

		joined := states[0]
		for _, s := range states[1:] {
			joined = join(joined, s)
		}

		next := f(it.edge.Stk, joined, it.edge.Dst)
		next(wl)
	}
}

// DepthOf reports the currently recorded depth for an edge and whether any
// has been recorded yet; exported for testing the depth-monotonicity and
// bound-respect invariants (spec §8).
func (wl *Worklist[S, F]) DepthOf(e Edge[F]) (int, bool) {
	d, ok := wl.depths[edgeKey(e)]
	return d, ok
}

// Len reports the number of pending heap entries; exported for tests.
func (wl *Worklist[S, F]) Len() int {
	return wl.pq.Len()
}
