package bus

import (
	"fmt"
	"testing"

	"github.com/verigraph/verigraph/internal/ir"
)

func aggregated(mod *ir.Module) ([]*ir.BusEdge, *ir.Diagnostics) {
	d := ir.NewDesign()
	d.Add(mod)
	var diags ir.Diagnostics
	Aggregate(d, &diags)
	return mod.Buses, &diags
}

func TestLoneScalarIsWidthOneEdge(t *testing.T) {
	edges, _ := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{{Name: "clk", Width: 1}},
	})
	if len(edges) != 1 {
		t.Fatalf("edges = %+v", edges)
	}
	e := edges[0]
	if e.Base != "clk" || e.Width != 1 || len(e.Nets) != 1 || e.Nets[0] != "clk" {
		t.Fatalf("edge = %+v", e)
	}
}

func TestVectorWithoutBitUsageIsOneEdge(t *testing.T) {
	edges, _ := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{{
			Name: "data", Width: 8, MSB: 7, LSB: 0,
			Endpoints: []ir.Endpoint{{Port: "data"}},
		}},
	})
	if len(edges) != 1 {
		t.Fatalf("edges = %+v", edges)
	}
	e := edges[0]
	if e.Base != "data" || e.Width != 8 || e.MSB != 7 || e.LSB != 0 || e.Partial {
		t.Fatalf("edge = %+v", e)
	}
	if len(e.Nets) != 8 || e.Nets[0] != "data[0]" || e.Nets[7] != "data[7]" {
		t.Fatalf("nets = %v", e.Nets)
	}
}

func TestVectorSplitsAtConnectivityBoundary(t *testing.T) {
	edges, _ := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{{
			Name: "data", Width: 8, MSB: 7, LSB: 0,
			Endpoints: []ir.Endpoint{
				{Instance: "u1", Port: "d", HasBits: true, MSB: 3, LSB: 0},
			},
		}},
	})
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	lo, hi := edges[0], edges[1]
	if lo.MSB != 3 || lo.LSB != 0 || lo.Partial {
		t.Fatalf("connected range = %+v", lo)
	}
	if hi.MSB != 7 || hi.LSB != 4 || !hi.Partial {
		t.Fatalf("unconnected remainder = %+v", hi)
	}
}

func TestIndexedBitsGroupByContiguity(t *testing.T) {
	edges, _ := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{
			{Name: "d[1]", Width: 1},
			{Name: "d[0]", Width: 1},
			{Name: "d[2]", Width: 1},
			{Name: "d[4]", Width: 1},
		},
	})
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	run := edges[0]
	if run.Base != "d" || run.LSB != 0 || run.MSB != 2 || run.Width != 3 {
		t.Fatalf("contiguous run = %+v", run)
	}
	if fmt.Sprint(run.Nets) != "[d[0] d[1] d[2]]" {
		t.Fatalf("run nets = %v", run.Nets)
	}
	gap := edges[1]
	if gap.LSB != 4 || gap.MSB != 4 || gap.Width != 1 {
		t.Fatalf("post-gap edge = %+v", gap)
	}
}

func TestIndexedBitsSplitOnEndpointSignature(t *testing.T) {
	edges, _ := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{
			{Name: "d[0]", Width: 1, Endpoints: []ir.Endpoint{{Instance: "u1", Port: "p"}}},
			{Name: "d[1]", Width: 1, Endpoints: []ir.Endpoint{{Instance: "u2", Port: "q"}}},
		},
	})
	if len(edges) != 2 {
		t.Fatalf("differently wired bits merged: %+v", edges)
	}
}

func TestDuplicateIndexFallsBackToPerBit(t *testing.T) {
	edges, diags := aggregated(&ir.Module{
		Name: "m",
		Nets: []*ir.Net{
			{Name: "d[0]", Width: 1},
			{Name: "d[0]", Width: 1},
			{Name: "d[1]", Width: 1},
		},
	})
	if len(edges) != 3 {
		t.Fatalf("expected per-bit fallback, got %+v", edges)
	}
	var saw bool
	for _, diag := range diags.Items() {
		if diag.Code == "bus-grouping-conflict" {
			saw = true
		}
	}
	if !saw {
		t.Fatalf("conflict not reported: %+v", diags.Items())
	}
}
