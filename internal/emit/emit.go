// Package emit serializes the merged structural+behavioral model into
// declarative DOT documents, one self-contained subgraph per hierarchy level
// reachable from the requested top. Node ordering follows declaration order
// and every map is iterated in sorted form, so repeated runs over unchanged
// input produce byte-identical output. Drill-down links are derived from the
// full hierarchical path, never from in-memory addresses, so the presentation
// layer can resolve them independently of process lifetime.
package emit

import (
	"fmt"
	"strings"

	"github.com/verigraph/verigraph/internal/hierarchy"
	"github.com/verigraph/verigraph/internal/ir"
)

// Emitter writes one DOT document per hierarchy level.
type Emitter struct {
	// Basename is the output file stem, e.g. "counter" for counter_arch.dot.
	Basename string
	// Format is the rendered-image extension drill-down links point at.
	Format string
	// CollapseThreshold collapses bus edge labels beyond this many
	// constituent signals into a "Bus: N signals" summary.
	CollapseThreshold int
	// InterClusterDataFlow adds def→use edges across block boundaries.
	InterClusterDataFlow bool
}

// New returns an Emitter with the defaults the viewer expects.
func New(basename string) *Emitter {
	return &Emitter{
		Basename:          basename,
		Format:            "svg",
		CollapseThreshold: 3,
	}
}

// Emit renders every hierarchy level. Keys of the returned map are file
// names (`<base>_arch.dot` for a root level, `<base>_<path>.dot` below).
func (e *Emitter) Emit(design *ir.Design, res *hierarchy.Resolution) (map[string]string, error) {
	out := make(map[string]string)
	for _, root := range res.Roots {
		stem := e.Basename + "_arch"
		if len(res.Roots) > 1 {
			stem = e.Basename + "_" + sanitizeID(root.ModuleName) + "_arch"
		}
		if err := e.emitLevel(design, root, stem, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Emitter) emitLevel(design *ir.Design, node *ir.InstanceNode, stem string, out map[string]string) error {
	mod, ok := design.Module(node.ModuleName)
	if !ok {
		return fmt.Errorf("module %q missing from design table", node.ModuleName)
	}

	out[stem+".dot"] = e.renderLevel(mod, node)

	for _, child := range node.Children {
		if child.Unresolved || child.Truncated {
			continue
		}
		childStem := e.Basename + "_" + sanitizeID(child.Path)
		if err := e.emitLevel(design, child, childStem, out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) renderLevel(mod *ir.Module, node *ir.InstanceNode) string {
	g := newGraph(node.Path)
	r := &levelRender{emitter: e, graph: g, defs: make(map[string]int)}

	// Port nodes first, declaration order.
	portNodes := make(map[string]int)
	for _, p := range mod.Ports {
		label := p.Name
		if p.Width > 1 {
			label = fmt.Sprintf("%s[%d:%d]", p.Name, p.MSB, p.LSB)
		}
		label += "\n(" + p.Dir.String() + ")"
		portNodes[p.Name] = g.addNode(attr{"label", label}, attr{"shape", "ellipse"},
			attr{"style", "filled"}, attr{"fillcolor", "white"})
	}

	// Instance nodes, declaration order, with drill-down links.
	instNodes := make(map[string]int)
	for _, child := range node.Children {
		inst := child.Instance
		attrs := []attr{{"label", inst.Name + " : " + inst.DefName}}
		switch {
		case child.Unresolved:
			attrs = append(attrs,
				attr{"style", "filled,dashed"}, attr{"color", "red"},
				attr{"fillcolor", "mistyrose"},
				attr{"tooltip", "Unresolved module: " + inst.DefName})
		case child.Truncated:
			attrs = append(attrs,
				attr{"style", "filled,bold"}, attr{"color", "red"},
				attr{"tooltip", "Instantiation cycle truncated here"})
		default:
			target := e.Basename + "_" + sanitizeID(child.Path) + "." + e.Format
			attrs = append(attrs,
				attr{"URL", "viewer.html?file=" + target},
				attr{"target", "_top"},
				attr{"style", "filled,bold"}, attr{"fillcolor", "#e6f3ff"},
				attr{"tooltip", "Go to module: " + inst.DefName})
		}
		instNodes[inst.Name] = g.addNode(attrs...)
	}

	e.renderBuses(g, mod, portNodes, instNodes)

	for _, blk := range mod.Blocks {
		r.renderBlock(blk)
	}
	if e.InterClusterDataFlow {
		r.renderDataFlow()
	}
	return g.String()
}

// renderBuses draws one edge per (driver, sink) pair of every bus edge.
// Wide buses get thick strokes and a collapsed hit-area label; the full
// constituent list always survives in the tooltip.
func (e *Emitter) renderBuses(g *graph, mod *ir.Module, portNodes, instNodes map[string]int) {
	endpointNode := func(ep ir.Endpoint) (int, bool) {
		if ep.Instance == "" {
			id, ok := portNodes[ep.Port]
			return id, ok
		}
		id, ok := instNodes[ep.Instance]
		return id, ok
	}

	type pair struct{ src, dst int }
	for _, bus := range mod.Buses {
		var drivers, sinks []ir.Endpoint
		for _, name := range busNetNames(mod, bus) {
			net := mod.Net(name)
			if net == nil {
				continue
			}
			for _, ep := range net.Endpoints {
				if ep.Driver {
					drivers = append(drivers, ep)
				} else {
					sinks = append(sinks, ep)
				}
			}
		}

		full := strings.Join(bus.Nets, "\n")
		label := full
		if len(bus.Nets) > e.CollapseThreshold {
			label = fmt.Sprintf("Bus: %d signals", len(bus.Nets))
		}
		penwidth := "2.0"
		arrowsize := "1.0"
		if bus.Width > 1 {
			penwidth = "4.0"
			arrowsize = "1.5"
		}

		seen := make(map[pair]bool)
		for _, d := range drivers {
			src, okSrc := endpointNode(d)
			if !okSrc {
				continue
			}
			for _, s := range sinks {
				dst, okDst := endpointNode(s)
				if !okDst || src == dst {
					continue
				}
				p := pair{src, dst}
				if seen[p] {
					continue
				}
				seen[p] = true
				attrs := []attr{
					{"xlabel", label},
					{"fontcolor", "#00000000"},
					{"tooltip", full},
					{"penwidth", penwidth},
					{"arrowsize", arrowsize},
					{"color", "#333333"},
				}
				if bus.Partial {
					attrs = append(attrs, attr{"style", "dashed"})
				}
				g.addEdge(src, dst, attrs...)
			}
		}
	}
}

// busNetNames lists the model nets behind a bus edge: an explicit vector is
// a single net under its base name, per-bit groups list each scalar.
func busNetNames(mod *ir.Module, bus *ir.BusEdge) []string {
	if mod.Net(bus.Base) != nil {
		return []string{bus.Base}
	}
	return bus.Nets
}

// levelRender holds the per-level control-flow rendering state.
type levelRender struct {
	emitter *Emitter
	graph   *graph
	cluster int
	// defs maps SSA names to defining nodes; uses lists consumers.
	defs     map[string]int
	useOrder []useRef
}

type useRef struct {
	node int
	ssa  string
}

func (r *levelRender) renderBlock(blk *ir.Block) {
	label := blk.Label
	if blk.Trigger != "" {
		label += "\n@(" + blk.Trigger + ")"
	}
	if blk.FSM != nil {
		label += fmt.Sprintf("\nFSM: %s (%d states)", blk.FSM.StateNet, len(blk.FSM.States))
	}
	color := "lightgrey"
	if blk.Kind == ir.BlockAlways {
		color = "lightblue"
	}
	r.cluster = r.graph.addCluster(label, color)

	entry := r.addClusterNode(attr{"label", "Enter " + blk.Kind.String()}, attr{"shape", "circle"})
	last := entry
	for _, frag := range blk.Frags {
		en, ex, ok := r.renderFrag(frag)
		if !ok {
			continue
		}
		r.graph.addEdge(last, en)
		last = ex
	}
}

func (r *levelRender) addClusterNode(attrs ...attr) int {
	id := r.graph.addNode(attrs...)
	r.graph.assign(r.cluster, id)
	return id
}

func (r *levelRender) styledNode(label string, extra ...attr) int {
	return r.addClusterNode(append(styleFor(label), extra...)...)
}

// renderFrag draws one fragment and returns its entry and exit nodes.
// The switch is exhaustive over the fragment kinds.
func (r *levelRender) renderFrag(frag *ir.Fragment) (entry, exit int, ok bool) {
	switch frag.Kind {
	case ir.FragAssign:
		id := r.styledNode(assignLabel(frag), assignExtras(frag)...)
		r.defs[frag.SSATarget] = id
		for _, use := range frag.Uses {
			r.useOrder = append(r.useOrder, useRef{node: id, ssa: use})
		}
		return id, id, true

	case ir.FragOpaque:
		id := r.addClusterNode(attr{"label", frag.Label},
			attr{"style", "filled,dotted"}, attr{"fillcolor", "gainsboro"},
			attr{"tooltip", "unsupported construct"})
		return id, id, true

	case ir.FragCond:
		head := r.styledNode(condLabel(frag))
		r.recordUses(head, frag.Uses)
		end := r.addClusterNode(attr{"label", "EndIf"}, attr{"shape", "circle"})
		r.renderBranches(frag, head, end, []string{"True", "False"})
		return head, end, true

	case ir.FragCase:
		head := r.styledNode(condLabel(frag))
		r.recordUses(head, frag.Uses)
		end := r.addClusterNode(attr{"label", "EndCase"}, attr{"shape", "circle"})
		r.renderBranches(frag, head, end, frag.Guards)
		return head, end, true

	case ir.FragLoop:
		head := r.styledNode(frag.Label, attr{"shape", "diamond"})
		r.recordUses(head, frag.Uses)
		end := r.addClusterNode(attr{"label", "LoopExit"}, attr{"shape", "circle"})
		if len(frag.Branches) > 0 {
			if en, ex, okB := r.renderSeq(frag.Branches[0]); okB {
				r.graph.addEdge(head, en, attr{"label", "T"})
				r.graph.addEdge(ex, head)
			}
		}
		r.graph.addEdge(head, end, attr{"label", "F"})
		return head, end, true
	}
	return 0, 0, false
}

func (r *levelRender) renderBranches(frag *ir.Fragment, head, end int, labels []string) {
	for i, branch := range frag.Branches {
		guard := "?"
		if i < len(labels) {
			guard = labels[i]
		}
		en, ex, ok := r.renderSeq(branch)
		if !ok {
			r.graph.addEdge(head, end, attr{"label", guard})
			continue
		}
		r.graph.addEdge(head, en, attr{"label", guard})
		r.graph.addEdge(ex, end)
	}
}

func (r *levelRender) renderSeq(frags []*ir.Fragment) (entry, exit int, ok bool) {
	last := -1
	for _, f := range frags {
		en, ex, okF := r.renderFrag(f)
		if !okF {
			continue
		}
		if last < 0 {
			entry = en
		} else {
			r.graph.addEdge(last, en)
		}
		last = ex
	}
	if last < 0 {
		return 0, 0, false
	}
	return entry, last, true
}

func (r *levelRender) recordUses(node int, uses []string) {
	for _, use := range uses {
		r.useOrder = append(r.useOrder, useRef{node: node, ssa: use})
	}
}

// renderDataFlow links each SSA definition to its downstream uses with
// non-constraining dashed edges, across cluster boundaries.
func (r *levelRender) renderDataFlow() {
	for _, use := range r.useOrder {
		def, ok := r.defs[use.ssa]
		if !ok || def == use.node {
			continue
		}
		r.graph.addEdge(def, use.node,
			attr{"style", "dashed"}, attr{"color", "#888888"},
			attr{"constraint", "false"}, attr{"tooltip", use.ssa})
	}
}

func assignLabel(frag *ir.Fragment) string {
	label := frag.Label
	label += "\nDEF: " + frag.SSATarget
	if len(frag.Uses) > 0 {
		label += "\nUSE: " + strings.Join(frag.Uses, ", ")
	} else {
		label += "\nUSE: none"
	}
	return label
}

func assignExtras(frag *ir.Fragment) []attr {
	var extra []attr
	if frag.Folded != "" {
		extra = append(extra, attr{"tooltip", "as-synthesized: " + frag.Target + " = " + frag.Folded})
	}
	if frag.StateDef {
		extra = append(extra, attr{"peripheries", "2"})
	}
	return extra
}

func condLabel(frag *ir.Fragment) string {
	label := frag.Label
	if len(frag.Uses) > 0 {
		label += "\nUSE: " + strings.Join(frag.Uses, ", ")
	} else {
		label += "\nUSE: none"
	}
	return label
}
