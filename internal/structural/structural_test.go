package structural

import (
	"strings"
	"testing"

	"github.com/verigraph/verigraph/internal/ir"
)

func leafDef() *ir.Module {
	return &ir.Module{
		Name: "leaf",
		Ports: []ir.Port{
			{Name: "ci", Dir: ir.DirInput},
			{Name: "co", Dir: ir.DirOutput},
		},
	}
}

func TestBuildInfersDirections(t *testing.T) {
	parent := &ir.Module{
		Name: "top",
		Ports: []ir.Port{
			{Name: "a", Dir: ir.DirInput},
			{Name: "y", Dir: ir.DirOutput},
		},
		Nets: []*ir.Net{
			{Name: "a", Width: 1, Dir: ir.DirInternal},
			{Name: "y", Width: 1, Dir: ir.DirInternal},
			{Name: "w", Width: 1, Dir: ir.DirInternal},
		},
		Instances: []*ir.Instance{{
			Name:     "u1",
			DefName:  "leaf",
			Resolved: true,
			Connections: []ir.Connection{
				{Port: "ci", Net: "w"},
				{Port: "co", Net: "w"},
			},
		}},
	}
	d := ir.NewDesign()
	d.Add(parent)
	d.Add(leafDef())

	var diags ir.Diagnostics
	Build(d, &diags)

	if got := parent.Net("a").Dir; got != ir.DirInput {
		t.Fatalf("a = %v", got)
	}
	if got := parent.Net("y").Dir; got != ir.DirOutput {
		t.Fatalf("y = %v", got)
	}
	// w is driven by the child output and consumed by the child input.
	w := parent.Net("w")
	if w.Dir != ir.DirBidir {
		t.Fatalf("w = %v", w.Dir)
	}
	if len(w.Endpoints) != 2 || len(w.Drivers) != 1 {
		t.Fatalf("w endpoints = %+v drivers = %+v", w.Endpoints, w.Drivers)
	}
	if w.Drivers[0].Instance != "u1" || w.Drivers[0].Port != "co" {
		t.Fatalf("driver = %+v", w.Drivers[0])
	}
}

func TestBuildSynthesizesImplicitNet(t *testing.T) {
	parent := &ir.Module{
		Name: "top",
		Instances: []*ir.Instance{{
			Name:        "u1",
			DefName:     "leaf",
			Resolved:    true,
			Connections: []ir.Connection{{Port: "ci", Net: "ghost"}},
		}},
	}
	d := ir.NewDesign()
	d.Add(parent)
	d.Add(leafDef())

	var diags ir.Diagnostics
	Build(d, &diags)

	net := parent.Net("ghost")
	if net == nil || net.Width != 1 {
		t.Fatalf("implicit net not synthesized: %+v", net)
	}
	if len(net.Endpoints) != 1 {
		t.Fatalf("endpoints = %+v", net.Endpoints)
	}
}

func TestBuildWarnsOnExpressionConnection(t *testing.T) {
	parent := &ir.Module{
		Name: "top",
		Instances: []*ir.Instance{{
			Name:        "u1",
			DefName:     "leaf",
			Resolved:    true,
			Connections: []ir.Connection{{Port: "ci", Expr: "(a & b)"}},
		}},
	}
	d := ir.NewDesign()
	d.Add(parent)
	d.Add(leafDef())

	var diags ir.Diagnostics
	Build(d, &diags)

	var saw bool
	for _, diag := range diags.Items() {
		if diag.Code == "expression-connection" && strings.Contains(diag.Message, "(a & b)") {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("expression connection not reported: %+v", diags.Items())
	}
}

func TestBuildReportsMultipleDrivers(t *testing.T) {
	parent := &ir.Module{
		Name: "top",
		Nets: []*ir.Net{{Name: "w", Width: 1, Dir: ir.DirInternal}},
		Instances: []*ir.Instance{
			{
				Name: "u1", DefName: "leaf", Resolved: true,
				Connections: []ir.Connection{{Port: "co", Net: "w"}},
			},
			{
				Name: "u2", DefName: "leaf", Resolved: true,
				Connections: []ir.Connection{{Port: "co", Net: "w"}},
			},
		},
	}
	d := ir.NewDesign()
	d.Add(parent)
	d.Add(leafDef())

	var diags ir.Diagnostics
	Build(d, &diags)

	if got := len(parent.Net("w").Drivers); got != 2 {
		t.Fatalf("drivers = %d", got)
	}
	var saw bool
	for _, diag := range diags.Items() {
		if diag.Code == "multiple-drivers" && diag.Severity == ir.SevInfo {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("multiple drivers not reported: %+v", diags.Items())
	}
}

func TestBuildSkipsUnresolvedInstances(t *testing.T) {
	parent := &ir.Module{
		Name: "top",
		Nets: []*ir.Net{{Name: "w", Width: 1, Dir: ir.DirInternal}},
		Instances: []*ir.Instance{{
			Name:        "u_rom",
			DefName:     "rom",
			Resolved:    false,
			Connections: []ir.Connection{{Port: "addr", Net: "w"}},
		}},
	}
	d := ir.NewDesign()
	d.Add(parent)

	var diags ir.Diagnostics
	Build(d, &diags)

	if got := len(parent.Net("w").Endpoints); got != 0 {
		t.Fatalf("unresolved instance contributed endpoints: %d", got)
	}
}
