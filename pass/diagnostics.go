package pass

import (
	"fmt"
	"sync"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic codes reported by the engine.
const (
	CodePrecondition = "SG0001" // host-level precondition failed
	CodeLoad         = "SG0002" // program model could not be built
	CodeGenerate     = "SG0003" // generating a candidate failed
	CodeFilter       = "SG0004" // a filter's candidate sequence failed
	CodeFold         = "SG0005" // folding generated output failed
	CodeHook         = "SG0006" // a generator hook failed
)

// Diagnostic is a structured failure or warning report.
type Diagnostic struct {
	Severity  Severity
	Code      string
	Message   string
	Group     string
	Filter    string
	Candidate string
	Err       error
}

func (d Diagnostic) String() string {
	where := ""
	switch {
	case d.Candidate != "":
		where = fmt.Sprintf(" [%s/%s: %s]", d.Group, d.Filter, d.Candidate)
	case d.Filter != "":
		where = fmt.Sprintf(" [%s/%s]", d.Group, d.Filter)
	case d.Group != "":
		where = fmt.Sprintf(" [%s]", d.Group)
	}
	return fmt.Sprintf("%s %s%s: %s", d.Code, d.Severity, where, d.Message)
}

// Sink receives diagnostics. It is independent of logging.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that keeps every diagnostic in memory.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Len returns the number of diagnostics reported.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diags)
}

// HasErrors reports whether any error-severity diagnostic was reported.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

type discardSink struct{}

func (discardSink) Report(Diagnostic) {}
