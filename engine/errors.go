package engine

import "fmt"

// FatalError is a structural invariant failure (spec §7, class 3):
// malformed IR, malformed stack, a missing entry point, or a missing
// globals entry in per-function mode. Unlike a Finding, it aborts the
// whole analysis run — it indicates a bug upstream of the engine, not
// something the domain can be asked to continue past.
type FatalError struct {
	Code    string
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("boundwalk: fatal[%s]: %s", e.Code, e.Message)
}

func fatalf(code, format string, args ...any) *FatalError {
	return &FatalError{Code: code, Message: fmt.Sprintf(format, args...)}
}
