package reporter

// NullReporter discards every finding and trace event. It is the default
// for library callers who only want exec_pgm's return value, and for
// benchmarks where reporting overhead would distort timing.
type NullReporter struct{}

// NewNullReporter returns a Reporter that discards everything it is given.
func NewNullReporter() *NullReporter { return &NullReporter{} }

func (*NullReporter) InvalidAccessInst(Finding) {}
func (*NullReporter) InvalidAccessTerm(Finding) {}
func (*NullReporter) UnknownCall(Finding)       {}
func (*NullReporter) Trace(TraceEvent)          {}
