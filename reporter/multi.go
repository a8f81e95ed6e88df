package reporter

// Multi fans a finding or trace event out to every backend it wraps, in
// order. It exists for callers that want more than one observability
// backend active at once (e.g. a human-readable log plus OpenTelemetry
// spans).
type Multi []Reporter

// NewMulti returns a Reporter that forwards to every given backend.
func NewMulti(backends ...Reporter) Multi { return Multi(backends) }

func (m Multi) InvalidAccessInst(f Finding) {
	for _, r := range m {
		r.InvalidAccessInst(f)
	}
}

func (m Multi) InvalidAccessTerm(f Finding) {
	for _, r := range m {
		r.InvalidAccessTerm(f)
	}
}

func (m Multi) UnknownCall(f Finding) {
	for _, r := range m {
		r.UnknownCall(f)
	}
}

func (m Multi) Trace(e TraceEvent) {
	for _, r := range m {
		r.Trace(e)
	}
}
