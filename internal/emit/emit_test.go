package emit

import (
	"strings"
	"testing"

	"github.com/verigraph/verigraph/internal/hierarchy"
	"github.com/verigraph/verigraph/internal/ir"
)

// fixture builds a two-level design: top instantiates a resolved leaf and an
// unresolved rom.
func fixture() (*ir.Design, *hierarchy.Resolution) {
	leafInst := &ir.Instance{Name: "u1", DefName: "leaf", Resolved: true}
	romInst := &ir.Instance{Name: "u_rom", DefName: "rom"}

	top := &ir.Module{
		Name:      "top",
		Ports:     []ir.Port{{Name: "clk", Width: 1, Dir: ir.DirInput}},
		Nets:      []*ir.Net{{Name: "clk", Width: 1, Dir: ir.DirInput}},
		Instances: []*ir.Instance{leafInst, romInst},
	}
	leaf := &ir.Module{Name: "leaf"}

	d := ir.NewDesign()
	d.Add(top)
	d.Add(leaf)

	root := &ir.InstanceNode{Path: "top", ModuleName: "top"}
	root.Children = []*ir.InstanceNode{
		{Path: "top.u1", ModuleName: "leaf", Instance: leafInst},
		{Path: "top.u_rom", ModuleName: "rom", Instance: romInst, Unresolved: true},
	}
	return d, &hierarchy.Resolution{Roots: []*ir.InstanceNode{root}}
}

func TestEmitFileNames(t *testing.T) {
	d, res := fixture()
	files, err := New("top").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if _, ok := files["top_arch.dot"]; !ok {
		t.Fatalf("missing root level, files: %v", fileNames(files))
	}
	if _, ok := files["top_top_u1.dot"]; !ok {
		t.Fatalf("missing drill-down level, files: %v", fileNames(files))
	}
	if len(files) != 2 {
		t.Fatalf("unresolved child must not get a level: %v", fileNames(files))
	}
}

func TestEmitMultiRootNaming(t *testing.T) {
	a := &ir.Module{Name: "alpha"}
	b := &ir.Module{Name: "beta"}
	d := ir.NewDesign()
	d.Add(a)
	d.Add(b)
	res := &hierarchy.Resolution{Roots: []*ir.InstanceNode{
		{Path: "alpha", ModuleName: "alpha"},
		{Path: "beta", ModuleName: "beta"},
	}}

	files, err := New("soc").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, ok := files["soc_alpha_arch.dot"]; !ok {
		t.Fatalf("files: %v", fileNames(files))
	}
	if _, ok := files["soc_beta_arch.dot"]; !ok {
		t.Fatalf("files: %v", fileNames(files))
	}
}

func TestDrillDownLink(t *testing.T) {
	d, res := fixture()
	files, err := New("top").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	arch := files["top_arch.dot"]
	if !strings.Contains(arch, `URL="viewer.html?file=top_top_u1.svg"`) {
		t.Fatalf("drill-down URL missing:\n%s", arch)
	}
	if !strings.Contains(arch, `target="_top"`) {
		t.Fatalf("link target missing:\n%s", arch)
	}
}

func TestUnresolvedInstanceStyling(t *testing.T) {
	d, res := fixture()
	files, err := New("top").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	arch := files["top_arch.dot"]
	if !strings.Contains(arch, "u_rom : rom") {
		t.Fatalf("unresolved instance node missing:\n%s", arch)
	}
	if !strings.Contains(arch, "mistyrose") || !strings.Contains(arch, "filled,dashed") {
		t.Fatalf("unresolved styling missing:\n%s", arch)
	}
	if strings.Contains(arch, "viewer.html?file=top_top_u_rom") {
		t.Fatalf("unresolved instance must not link anywhere:\n%s", arch)
	}
}

func TestBusCollapseAndTooltip(t *testing.T) {
	drv := ir.Endpoint{Port: "src", Driver: true}
	snk := ir.Endpoint{Port: "dst"}
	mod := &ir.Module{
		Name: "m",
		Ports: []ir.Port{
			{Name: "src", Width: 1, Dir: ir.DirInput},
			{Name: "dst", Width: 1, Dir: ir.DirOutput},
		},
		Nets: []*ir.Net{
			{Name: "d[0]", Width: 1, Endpoints: []ir.Endpoint{drv, snk}},
			{Name: "d[1]", Width: 1, Endpoints: []ir.Endpoint{drv, snk}},
			{Name: "d[2]", Width: 1, Endpoints: []ir.Endpoint{drv, snk}},
			{Name: "d[3]", Width: 1, Endpoints: []ir.Endpoint{drv, snk}},
		},
		Buses: []*ir.BusEdge{{
			Base: "d", MSB: 3, LSB: 0, Width: 4,
			Nets: []string{"d[0]", "d[1]", "d[2]", "d[3]"},
		}},
	}
	d := ir.NewDesign()
	d.Add(mod)
	res := &hierarchy.Resolution{Roots: []*ir.InstanceNode{{Path: "m", ModuleName: "m"}}}

	files, err := New("m").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	dot := files["m_arch.dot"]
	if !strings.Contains(dot, `xlabel="Bus: 4 signals"`) {
		t.Fatalf("collapsed label missing:\n%s", dot)
	}
	if !strings.Contains(dot, `tooltip="d[0]\nd[1]\nd[2]\nd[3]"`) {
		t.Fatalf("full tooltip missing:\n%s", dot)
	}
	if !strings.Contains(dot, `penwidth="4.0"`) {
		t.Fatalf("wide-bus stroke missing:\n%s", dot)
	}
	// One deduplicated edge for the whole bus.
	if got := strings.Count(dot, "penwidth"); got != 1 {
		t.Fatalf("expected a single bus edge, got %d", got)
	}
}

func TestBlockRendering(t *testing.T) {
	blk := &ir.Block{
		Kind:       ir.BlockAlways,
		Sequential: true,
		Trigger:    "posedge clk",
		Label:      "Counter",
		Frags: []*ir.Fragment{{
			Kind:        ir.FragAssign,
			Label:       "count <= (count + 1)",
			Target:      "count",
			SSATarget:   "count_1",
			Uses:        []string{"count"},
			Nonblocking: true,
		}},
	}
	mod := &ir.Module{Name: "m", Blocks: []*ir.Block{blk}}
	d := ir.NewDesign()
	d.Add(mod)
	res := &hierarchy.Resolution{Roots: []*ir.InstanceNode{{Path: "m", ModuleName: "m"}}}

	files, err := New("m").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	dot := files["m_arch.dot"]
	if !strings.Contains(dot, `label="Counter\n@(posedge clk)"`) {
		t.Fatalf("cluster label missing:\n%s", dot)
	}
	if !strings.Contains(dot, "Enter always") {
		t.Fatalf("entry node missing:\n%s", dot)
	}
	if !strings.Contains(dot, `DEF: count_1`) || !strings.Contains(dot, `USE: count`) {
		t.Fatalf("def/use annotations missing:\n%s", dot)
	}
	if !strings.Contains(dot, "subgraph cluster_0") {
		t.Fatalf("block cluster missing:\n%s", dot)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	d, res := fixture()
	first, err := New("top").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	second, err := New("top").Emit(d, res)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("file counts differ")
	}
	for name, content := range first {
		if second[name] != content {
			t.Fatalf("file %s differs between runs", name)
		}
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("top.u_alu"); got != "top_u_alu" {
		t.Fatalf("path = %q", got)
	}
	if got := sanitizeID("9lives"); got != "g9lives" {
		t.Fatalf("leading digit = %q", got)
	}
	if got := sanitizeID(""); got != "g" {
		t.Fatalf("empty = %q", got)
	}
}

func fileNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	return names
}
