package validator

import (
	"strings"
	"testing"
)

func validReport() map[string]interface{} {
	return map[string]interface{}{
		"top":     "cpu",
		"inputs":  []string{"cpu.xml"},
		"modules": 2,
		"files":   []string{"cpu_arch.dot"},
		"violations": []map[string]interface{}{
			{"rule": "multi_driven", "severity": "warning", "module": "cpu", "line": 4, "message": "net 'x' is driven 2 times"},
		},
		"summary": map[string]interface{}{
			"total_violations": 1, "errors": 0, "warnings": 1, "info": 0,
		},
		"diagnostics": []map[string]interface{}{},
		"timings": []map[string]interface{}{
			{"phase": "normalize", "kind": "stage", "start_ms": 0.0, "duration_ms": 1.5, "end_ms": 1.5},
		},
	}
}

func TestReportValidatorAcceptsValidReport(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	if err := v.Validate(validReport()); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}
}

func TestReportValidatorRejectsBadSeverity(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	report := validReport()
	report["violations"] = []map[string]interface{}{
		{"rule": "multi_driven", "severity": "fatal", "module": "cpu", "line": 4, "message": "boom"},
	}

	if err := v.Validate(report); err == nil {
		t.Fatalf("expected rejection for unknown severity")
	}
}

func TestReportValidatorRejectsMissingSummary(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	report := validReport()
	delete(report, "summary")

	errs := v.ValidationErrors(report)
	if len(errs) == 0 {
		t.Fatalf("expected validation errors for missing summary")
	}
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "summary") {
		t.Fatalf("errors should name the missing field, got: %s", joined)
	}
}

func TestFactsValidatorAcceptsEmptyTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tables := map[string]interface{}{
		"modules":     []interface{}{},
		"ports":       []interface{}{},
		"nets":        []interface{}{},
		"instances":   []interface{}{},
		"connections": []interface{}{},
		"buses":       []interface{}{},
		"blocks":      []interface{}{},
		"fragments":   []interface{}{},
		"hierarchy":   []interface{}{},
		"diagnostics": []interface{}{},
	}
	if err := v.Validate(tables); err != nil {
		t.Fatalf("empty tables rejected: %v", err)
	}
}

func TestFactsValidatorRejectsNegativeWidth(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tables := map[string]interface{}{
		"modules": []interface{}{},
		"ports":   []interface{}{},
		"nets": []map[string]interface{}{
			{"module": "cpu", "name": "x", "direction": "internal", "width": -1,
				"msb": 0, "lsb": 0, "num_drivers": 0, "num_sinks": 0, "line": 0},
		},
		"instances":   []interface{}{},
		"connections": []interface{}{},
		"buses":       []interface{}{},
		"blocks":      []interface{}{},
		"fragments":   []interface{}{},
		"hierarchy":   []interface{}{},
		"diagnostics": []interface{}{},
	}
	if err := v.Validate(tables); err == nil {
		t.Fatalf("expected rejection for negative net width")
	}
}
