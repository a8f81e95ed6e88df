package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ansi color codes used by LogReporter's text mode when writing to a
// terminal. Findings are red, traces are dim.
const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
)

// LogReporter writes findings and trace events to a writer, either as
// human-readable text (one line per event, `key=value` pairs) or as
// JSON-lines, mirroring the teacher's LogEmitter. When writing text to a
// terminal (detected via isatty), findings are colored to stand out from
// trace noise.
type LogReporter struct {
	w        io.Writer
	jsonMode bool
	color    bool
}

// NewLogReporter creates a LogReporter writing to w. If w is nil, os.Stdout
// is used. Color is auto-detected from whether w is a terminal file
// descriptor; it only ever applies in text mode.
func NewLogReporter(w io.Writer, jsonMode bool) *LogReporter {
	if w == nil {
		w = os.Stdout
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &LogReporter{w: w, jsonMode: jsonMode, color: color}
}

func (l *LogReporter) InvalidAccessInst(f Finding) { l.emitFinding(f) }
func (l *LogReporter) InvalidAccessTerm(f Finding) { l.emitFinding(f) }
func (l *LogReporter) UnknownCall(f Finding)       { l.emitFinding(f) }

func (l *LogReporter) emitFinding(f Finding) {
	if l.jsonMode {
		data, err := json.Marshal(f)
		if err != nil {
			fmt.Fprintf(l.w, "{\"error\":\"failed to marshal finding: %v\"}\n", err)
			return
		}
		fmt.Fprintf(l.w, "%s\n", data)
		return
	}
	if l.color {
		fmt.Fprintf(l.w, "%s[%s]%s run=%s func=%s block=%s %s\n",
			ansiRed, f.Kind, ansiReset, f.RunID, f.Func, f.Block, f.Detail)
		return
	}
	fmt.Fprintf(l.w, "[%s] run=%s func=%s block=%s %s\n", f.Kind, f.RunID, f.Func, f.Block, f.Detail)
}

func (l *LogReporter) Trace(e TraceEvent) {
	if l.jsonMode {
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(l.w, "{\"error\":\"failed to marshal trace event: %v\"}\n", err)
			return
		}
		fmt.Fprintf(l.w, "%s\n", data)
		return
	}
	prefix, suffix := "", ""
	if l.color {
		prefix, suffix = ansiDim, ansiReset
	}
	if len(e.Meta) > 0 {
		meta, err := json.Marshal(e.Meta)
		if err == nil {
			fmt.Fprintf(l.w, "%strace run=%s %s meta=%s%s\n", prefix, e.RunID, e.Msg, meta, suffix)
			return
		}
	}
	fmt.Fprintf(l.w, "%strace run=%s %s%s\n", prefix, e.RunID, e.Msg, suffix)
}
