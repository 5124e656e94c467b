// Package diag carries non-fatal compiler messages from the front end to the
// caller. Fatal problems are returned as errors; only anomalies the pipeline
// recovers from travel through a Reporter.
package diag

import (
	"fmt"
	"io"
	"log"
)

// Level indicates severity.
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Diagnostic is a compiler message with source location.
type Diagnostic struct {
	Level   Level
	Span    Span
	Message string
	Code    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s] %d:%d: %s", d.Level, d.Code, d.Span.Start, d.Span.End, d.Message)
}

// Reporter receives diagnostics as they are produced.
type Reporter interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// Collector accumulates diagnostics in order. The zero value is ready to use.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Codes returns the codes of the collected diagnostics in order.
func (c *Collector) Codes() []string {
	out := make([]string, 0, len(c.Diagnostics))
	for _, d := range c.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

// LogReporter writes diagnostics to a logger.
type LogReporter struct {
	logger *log.Logger
}

// NewLogReporter returns a Reporter printing through logger. A nil logger
// discards output.
func NewLogReporter(logger *log.Logger) *LogReporter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(d Diagnostic) {
	r.logger.Println(d.String())
}

// Func adapts a plain function to Reporter.
type Func func(d Diagnostic)

func (f Func) Report(d Diagnostic) { f(d) }
