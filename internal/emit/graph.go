package emit

import (
	"fmt"
	"sort"
	"strings"
)

// node is one DOT node with pre-escaped attributes.
type node struct {
	id    int
	attrs []attr
}

// attr is a single key=value DOT attribute. Values are quoted on write.
type attr struct {
	key   string
	value string
}

type edge struct {
	src, dst int
	attrs    []attr
}

// cluster is a DOT subgraph; nodes are assigned by id.
type cluster struct {
	label   string
	color   string
	nodeIDs []int
}

// graph accumulates nodes, edges and clusters for one hierarchy level and
// serializes them deterministically: nodes ascending by id, edges and
// clusters in insertion order.
type graph struct {
	name      string
	nodes     []node
	edges     []edge
	clusters  []cluster
	inCluster map[int]bool
}

func newGraph(name string) *graph {
	return &graph{name: sanitizeID(name), inCluster: make(map[int]bool)}
}

func (g *graph) addNode(attrs ...attr) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, node{id: id, attrs: attrs})
	return id
}

func (g *graph) addEdge(src, dst int, attrs ...attr) {
	g.edges = append(g.edges, edge{src: src, dst: dst, attrs: attrs})
}

func (g *graph) addCluster(label, color string) int {
	g.clusters = append(g.clusters, cluster{label: label, color: color})
	return len(g.clusters) - 1
}

func (g *graph) assign(clusterID, nodeID int) {
	g.clusters[clusterID].nodeIDs = append(g.clusters[clusterID].nodeIDs, nodeID)
	g.inCluster[nodeID] = true
}

// String renders the graph as a self-contained DOT document with the
// block-diagram defaults the layout engine expects.
func (g *graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", g.name)
	b.WriteString("  rankdir=TB; splines=ortho;\n")
	b.WriteString("  graph [ranksep=2.0, nodesep=1.5];\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=white, fontsize=12, fontname=\"Arial\"];\n")
	b.WriteString("  edge [fontname=\"Arial\", fontsize=10, color=\"#555555\"];\n")

	for i, cl := range g.clusters {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%s; style=filled; color=%s;\n", quote(cl.label), quote(cl.color))
		ids := append([]int(nil), cl.nodeIDs...)
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "    n%d [%s];\n", id, renderAttrs(g.nodes[id].attrs))
		}
		b.WriteString("  }\n")
	}
	for _, n := range g.nodes {
		if g.inCluster[n.id] {
			continue
		}
		fmt.Fprintf(&b, "  n%d [%s];\n", n.id, renderAttrs(n.attrs))
	}
	for _, e := range g.edges {
		if len(e.attrs) == 0 {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", e.src, e.dst)
			continue
		}
		fmt.Fprintf(&b, "  n%d -> n%d [%s];\n", e.src, e.dst, renderAttrs(e.attrs))
	}
	b.WriteString("}\n")
	return b.String()
}

func renderAttrs(attrs []attr) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, a.key+"="+quote(a.value))
	}
	return strings.Join(parts, ", ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `"`, `\"`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	return `"` + v + `"`
}

// sanitizeID rewrites a hierarchical path into an identifier safe for DOT
// names and file stems. The result is a stable function of the path alone.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "g"
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		return "g" + out
	}
	return out
}
