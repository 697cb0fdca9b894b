// Package bus groups related single-bit nets into width-annotated bus edges
// for rendering. Grouping is a pure function of declared widths and endpoint
// connectivity, never of rendering state, so re-running aggregation on an
// already-aggregated model produces the identical edge set.
package bus

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/verigraph/verigraph/internal/ir"
)

// indexedName matches scalar nets declared as individual bits of a vector,
// e.g. "data[3]" or the elaborator's escaped form "data__BRA__3__KET__".
var indexedName = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// Aggregate computes every module's bus edges. The grouping key is
// (base name, module scope); disjoint contiguous ranges under one base stay
// separate edges ordered by ascending start index.
func Aggregate(design *ir.Design, diags *ir.Diagnostics) {
	for _, mod := range design.Modules {
		mod.Buses = aggregateModule(mod, diags)
	}
}

func aggregateModule(mod *ir.Module, diags *ir.Diagnostics) []*ir.BusEdge {
	var edges []*ir.BusEdge

	// Scalar nets spelled base[i] group by contiguity and matching
	// endpoint signature; everything else aggregates as itself.
	groups := make(map[string][]*bit) // base -> bits
	var order []string                // declaration order of first sighting

	for _, net := range mod.Nets {
		if net.Width > 1 {
			edges = append(edges, vectorEdges(net)...)
			continue
		}
		base, idx, ok := splitIndexed(net.Name)
		if !ok {
			// Trivial case: a lone net is a width-1 edge, always
			// produced so rendering is uniform.
			edges = append(edges, &ir.BusEdge{
				Base:  net.Name,
				Width: 1,
				Nets:  []string{net.Name},
			})
			continue
		}
		if _, seen := groups[base]; !seen {
			order = append(order, base)
		}
		groups[base] = append(groups[base], &bit{net: net, index: idx})
	}

	for _, base := range order {
		edges = append(edges, groupBits(mod.Name, base, groups[base], diags)...)
	}
	return edges
}

type bit struct {
	net   *ir.Net
	index int
}

func splitIndexed(name string) (base string, index int, ok bool) {
	m := indexedName.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], idx, true
}

// vectorEdges splits an explicitly declared vector by per-bit connectivity:
// one edge per contiguous connected sub-range, plus partial edges for the
// unconnected remainder. Fully connected (or fully internal) vectors yield a
// single edge.
func vectorEdges(net *ir.Net) []*ir.BusEdge {
	lo, hi := net.LSB, net.MSB
	if lo > hi {
		lo, hi = hi, lo
	}

	connected := make([]bool, hi-lo+1)
	ranged := false
	for _, ep := range net.Endpoints {
		if !ep.HasBits {
			// A whole-net endpoint touches every bit.
			for i := range connected {
				connected[i] = true
			}
			continue
		}
		ranged = true
		for b := ep.LSB; b <= ep.MSB; b++ {
			if b >= lo && b <= hi {
				connected[b-lo] = true
			}
		}
	}
	if !ranged {
		// No bit-level usage: the declared vector is one edge.
		return []*ir.BusEdge{{
			Base:  net.Name,
			MSB:   net.MSB,
			LSB:   net.LSB,
			Width: net.Width,
			Nets:  bitNames(net.Name, lo, hi),
		}}
	}

	var edges []*ir.BusEdge
	for start := 0; start < len(connected); {
		end := start
		for end+1 < len(connected) && connected[end+1] == connected[start] {
			end++
		}
		edges = append(edges, &ir.BusEdge{
			Base:    net.Name,
			MSB:     lo + end,
			LSB:     lo + start,
			Width:   end - start + 1,
			Nets:    bitNames(net.Name, lo+start, lo+end),
			Partial: !connected[start],
		})
		start = end + 1
	}
	return edges
}

func bitNames(base string, lo, hi int) []string {
	names := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		names = append(names, fmt.Sprintf("%s[%d]", base, i))
	}
	return names
}

// groupBits merges per-bit scalar nets into contiguous runs whose bits share
// an identical endpoint signature (same instance-ports modulo index). A
// duplicate index under one base is a grouping conflict: the whole base falls
// back to per-bit edges, and the conflict is reported.
func groupBits(module, base string, bits []*bit, diags *ir.Diagnostics) []*ir.BusEdge {
	sort.Slice(bits, func(i, j int) bool { return bits[i].index < bits[j].index })

	for i := 1; i < len(bits); i++ {
		if bits[i].index == bits[i-1].index {
			err := &ir.BusGroupingConflictError{
				Module: module,
				Base:   base,
				Reason: fmt.Sprintf("duplicate bit index %d", bits[i].index),
			}
			diags.Add(ir.Diagnostic{
				Severity: ir.SevWarning,
				Code:     "bus-grouping-conflict",
				Module:   module,
				Message:  err.Error(),
			})
			return perBitEdges(bits)
		}
	}

	var edges []*ir.BusEdge
	for start := 0; start < len(bits); {
		end := start
		for end+1 < len(bits) &&
			bits[end+1].index == bits[end].index+1 &&
			signature(bits[end+1].net) == signature(bits[start].net) {
			end++
		}
		run := bits[start : end+1]
		edge := &ir.BusEdge{
			Base:  base,
			MSB:   run[len(run)-1].index,
			LSB:   run[0].index,
			Width: len(run),
		}
		for _, b := range run {
			edge.Nets = append(edge.Nets, b.net.Name)
		}
		edges = append(edges, edge)
		start = end + 1
	}
	return edges
}

func perBitEdges(bits []*bit) []*ir.BusEdge {
	edges := make([]*ir.BusEdge, 0, len(bits))
	for _, b := range bits {
		edges = append(edges, &ir.BusEdge{
			Base:  b.net.Name,
			MSB:   b.index,
			LSB:   b.index,
			Width: 1,
			Nets:  []string{b.net.Name},
		})
	}
	return edges
}

// signature canonicalizes a net's endpoint set as instance:port pairs,
// sorted, so bits wired to the same instance-ports (modulo bit offset)
// compare equal.
func signature(net *ir.Net) string {
	pairs := make([]string, 0, len(net.Endpoints))
	for _, ep := range net.Endpoints {
		pairs = append(pairs, ep.Instance+":"+ep.Port)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
