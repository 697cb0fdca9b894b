package rules

import (
	"context"
	"testing"

	"github.com/verigraph/verigraph/internal/facts"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func hasRule(result *Result, rule string) bool {
	for _, v := range result.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func TestMultiDrivenRule(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Nets: []facts.NetRow{
			{Module: "top", Name: "clean", NumDrivers: 1},
			{Module: "top", Name: "contested", NumDrivers: 2, Line: 7},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !hasRule(result, "multi_driven") {
		t.Fatalf("expected multi_driven violation, got %+v", result.Violations)
	}
	if result.Summary.Warnings != 1 {
		t.Fatalf("expected 1 warning, got summary %+v", result.Summary)
	}
}

func TestUnresolvedInstanceRule(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Instances: []facts.InstanceRow{
			{Module: "top", Name: "u_ok", DefName: "alu", Resolved: true},
			{Module: "top", Name: "u_missing", DefName: "rom", Resolved: false, Line: 12},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !hasRule(result, "unresolved_instance") {
		t.Fatalf("expected unresolved_instance violation, got %+v", result.Violations)
	}
	if result.Summary.Errors != 1 {
		t.Fatalf("expected 1 error, got summary %+v", result.Summary)
	}
}

func TestWidthMismatchRule(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Instances: []facts.InstanceRow{
			{Module: "top", Name: "u_alu", DefName: "alu", Resolved: true},
		},
		Ports: []facts.PortRow{
			{Module: "alu", Name: "op", Width: 4},
		},
		Nets: []facts.NetRow{
			{Module: "top", Name: "op_bus", Width: 8},
		},
		Connections: []facts.ConnectionRow{
			{Module: "top", Instance: "u_alu", Port: "op", Net: "op_bus"},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !hasRule(result, "width_mismatch") {
		t.Fatalf("expected width_mismatch violation, got %+v", result.Violations)
	}
}

func TestWidthMismatchIgnoresSlicedConnections(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Instances: []facts.InstanceRow{
			{Module: "top", Name: "u_alu", DefName: "alu", Resolved: true},
		},
		Ports: []facts.PortRow{
			{Module: "alu", Name: "op", Width: 4},
		},
		Nets: []facts.NetRow{
			{Module: "top", Name: "op_bus", Width: 8},
		},
		Connections: []facts.ConnectionRow{
			{Module: "top", Instance: "u_alu", Port: "op", Net: "op_bus", Sliced: true, MSB: 3, LSB: 0},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if hasRule(result, "width_mismatch") {
		t.Fatalf("sliced connection should not trip width_mismatch: %+v", result.Violations)
	}
}

func TestFSMNoDefaultRule(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Blocks: []facts.BlockRow{
			{Module: "ctrl", Index: 0, FSMState: "state", NumStates: 3, HasDefault: false, Line: 20},
			{Module: "ctrl", Index: 1, FSMState: "phase", NumStates: 2, HasDefault: true},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var count int
	for _, v := range result.Violations {
		if v.Rule == "fsm_no_default" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one fsm_no_default violation, got %+v", result.Violations)
	}
}

func TestSeverityOverridesRecomputeSummary(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Nets: []facts.NetRow{
			{Module: "top", Name: "contested", NumDrivers: 3},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, map[string]string{
		"multi_driven": "error",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Violations) != 1 || result.Violations[0].Severity != "error" {
		t.Fatalf("override not applied: %+v", result.Violations)
	}
	if result.Summary.Errors != 1 || result.Summary.Warnings != 0 {
		t.Fatalf("summary not recomputed: %+v", result.Summary)
	}
}

func TestCleanDesignHasNoViolations(t *testing.T) {
	engine := newEngine(t)

	tables := facts.Tables{
		Nets: []facts.NetRow{
			{Module: "top", Name: "clk", Width: 1, NumDrivers: 1},
		},
		Instances: []facts.InstanceRow{
			{Module: "top", Name: "u_alu", DefName: "alu", Resolved: true},
		},
	}

	result, err := engine.Evaluate(context.Background(), tables, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", result.Violations)
	}
	if result.Summary.TotalViolations != 0 {
		t.Fatalf("expected empty summary, got %+v", result.Summary)
	}
}
