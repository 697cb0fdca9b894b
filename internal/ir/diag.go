package ir

import (
	"fmt"
	"sort"
)

// Severity ranks diagnostics.
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is one collected problem. Every recoverable error of the
// taxonomy lands here; nothing is silently dropped.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Module   string   `json:"module,omitempty"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
}

// Diagnostics is the per-run accumulator threaded through every stage and
// merged once at the end. It replaces ad-hoc logging.
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) {
	d.items = append(d.items, diag)
}

// AddError records an error from the taxonomy with a stable code.
func (d *Diagnostics) AddError(code, module, path string, err error) {
	d.Add(Diagnostic{
		Severity: SevError,
		Code:     code,
		Module:   module,
		Path:     path,
		Message:  err.Error(),
	})
}

// Warnf records a formatted warning.
func (d *Diagnostics) Warnf(code, module string, format string, args ...interface{}) {
	d.Add(Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Module:   module,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends all diagnostics from another accumulator.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Items returns the collected diagnostics. The returned slice aliases the
// internal one; callers must not modify it.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// Len returns the number of collected diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.items)
}

// HasErrors reports whether any diagnostic has error severity.
func (d *Diagnostics) HasErrors() bool {
	for i := range d.items {
		if d.items[i].Severity == SevError {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by module, path, line, severity (descending) and
// code for a stable, deterministic report.
func (d *Diagnostics) Sort() {
	sort.SliceStable(d.items, func(i, j int) bool {
		a, b := d.items[i], d.items[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.Code < b.Code
	})
}
