// Package reporter implements the engine's external reporter contract
// (spec §6, §7): fire-and-forget diagnostics for invalid accesses and
// unknown calls, plus a lightweight trace hook (spec §9 design note)
// plumbed the same way the teacher repository plumbs observability
// events — as a pluggable, non-blocking external observer, never part of
// the engine's own control flow.
package reporter

// Finding classifies which of spec §7's two reportable (non-fatal) error
// classes a Finding describes.
type Finding struct {
	// RunID correlates findings with a particular exec_pgm invocation.
	RunID string
	// Func is the name of the function the finding occurred in.
	Func string
	// Block is the label of the block the finding occurred in.
	Block string
	// Kind is one of "invalid-inst", "invalid-term", or "unknown-call".
	Kind string
	// Detail is a human-readable description, typically from the domain's
	// report thunk or a formatted callee name.
	Detail string
}

// TraceEvent is one lightweight trace line, the engine's stand-in for the
// "liberally instrumented" original's trace! macro (spec §9): it never
// changes engine behavior, only observes it.
type TraceEvent struct {
	RunID string
	Msg   string
	Meta  map[string]any
}

// Reporter receives and processes diagnostics and trace events produced
// while exploring a program. Implementations must not block exploration
// and must not panic; a reporter that cannot deliver a finding should drop
// it rather than abort the analysis (spec §7: "Reporting is fire-and-forget").
type Reporter interface {
	// InvalidAccessInst reports an invalid access detected while executing
	// an instruction (spec §7 class 1).
	InvalidAccessInst(f Finding)
	// InvalidAccessTerm reports an invalid access detected while executing
	// a terminator (spec §7 class 1).
	InvalidAccessTerm(f Finding)
	// UnknownCall reports a call to an unresolved or undefined callee
	// (spec §7 class 2).
	UnknownCall(f Finding)
	// Trace records an observability event; it carries no meaning to the
	// engine itself.
	Trace(e TraceEvent)
}
